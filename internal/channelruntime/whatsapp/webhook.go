// Package whatsapp runs the WhatsApp side of the bot: an http.Handler
// that terminates Meta's Cloud API webhook (hub challenge verification
// on GET, message notifications on POST) and the Graph API client the
// outbound router delivers replies through.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/dispatch"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/idempotency"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/messages"
)

// Handler consumes translated inbound events. *dispatch.Dispatcher
// satisfies it.
type Handler interface {
	Handle(ctx context.Context, ev dispatch.Event) error
}

// WebhookOptions configures the webhook endpoint.
type WebhookOptions struct {
	// VerifyToken is the shared secret echoed back during Meta's
	// subscription handshake.
	VerifyToken string
	// MaxImageBytes caps inbound photo downloads. Zero means 20 MiB.
	MaxImageBytes int64
	// MaxBodyBytes caps webhook request bodies. Zero means 1 MiB.
	MaxBodyBytes int64
}

func normalizeWebhookOptions(opts WebhookOptions) WebhookOptions {
	opts.VerifyToken = strings.TrimSpace(opts.VerifyToken)
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 20 * 1024 * 1024
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 * 1024 * 1024
	}
	return opts
}

// Webhook handles Cloud API callbacks and turns message notifications
// into dispatch events.
type Webhook struct {
	client *Client
	disp   Handler
	cat    messages.Catalog
	log    *slog.Logger
	opts   WebhookOptions
}

func NewWebhook(opts WebhookOptions, client *Client, disp Handler, cat messages.Catalog, log *slog.Logger) (*Webhook, error) {
	opts = normalizeWebhookOptions(opts)
	if opts.VerifyToken == "" {
		return nil, fmt.Errorf("whatsapp verify token is required")
	}
	if client == nil {
		return nil, fmt.Errorf("whatsapp client is required")
	}
	if disp == nil {
		return nil, fmt.Errorf("whatsapp dispatcher is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Webhook{
		client: client,
		disp:   disp,
		cat:    cat,
		log:    log,
		opts:   opts,
	}, nil
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verify(w, r)
	case http.MethodPost:
		h.events(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// verify answers the subscription handshake: Meta calls with
// hub.mode=subscribe and the configured token, and expects the
// hub.challenge value echoed back verbatim.
func (h *Webhook) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.opts.VerifyToken {
		h.log.Info("whatsapp_webhook_verified")
		_, _ = io.WriteString(w, q.Get("hub.challenge"))
		return
	}
	h.log.Warn("whatsapp_webhook_verify_rejected", "mode", q.Get("hub.mode"))
	http.Error(w, "Verification failed", http.StatusForbidden)
}

// events handles message notifications. Meta redelivers anything that
// does not come back 200, so every payload is acknowledged with OK,
// including ones the bot cannot parse.
func (h *Webhook) events(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		h.log.Warn("whatsapp_event_read_error", "error", err.Error())
	} else {
		h.handleEvent(r.Context(), body)
	}
	_, _ = io.WriteString(w, "OK")
}

func (h *Webhook) handleEvent(ctx context.Context, body []byte) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Warn("whatsapp_event_decode_error", "error", err.Error())
		return
	}
	msg := payload.firstMessage()
	if msg == nil {
		// Delivery receipts and read statuses share the webhook.
		return
	}
	sender := strings.TrimSpace(msg.From)
	if sender == "" {
		h.log.Warn("whatsapp_event_missing_sender")
		return
	}

	ev := dispatch.Event{
		UserID:    sender,
		Platform:  dispatch.PlatformWhatsApp,
		MessageID: h.envelopeKey(sender, msg.ID),
	}
	switch {
	case msg.Text != nil && strings.TrimSpace(msg.Text.Body) != "":
		ev.Kind = dispatch.KindText
		ev.Text = strings.TrimSpace(msg.Text.Body)
	case msg.Image != nil:
		img, err := h.fetchImage(ctx, msg.Image.ID)
		if err != nil {
			h.log.Warn("whatsapp_image_fetch_error", "from", sender, "media_id", msg.Image.ID, "error", err.Error())
			if sendErr := h.client.Send(ctx, sender, h.cat.ImageError); sendErr != nil {
				h.log.Warn("whatsapp_send_error", "to", sender, "error", sendErr.Error())
			}
			return
		}
		ev.Kind = dispatch.KindImage
		ev.Image = img
		ev.Text = strings.TrimSpace(msg.Image.Caption)
	case msg.Location != nil:
		ev.Kind = dispatch.KindLocation
		ev.Location = &dispatch.Location{
			Lat: msg.Location.Latitude,
			Lon: msg.Location.Longitude,
		}
	default:
		// Audio, documents, contacts and other media the bot cannot read.
		h.log.Debug("whatsapp_event_ignored", "from", sender, "type", msg.Type)
		return
	}

	if err := h.disp.Handle(ctx, ev); err != nil {
		h.log.Warn("whatsapp_event_error", "from", sender, "kind", ev.Kind, "error", err.Error())
	}
}

func (h *Webhook) fetchImage(ctx context.Context, mediaID string) ([]byte, error) {
	u, err := h.client.mediaURL(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	return h.client.downloadMedia(ctx, u, h.opts.MaxImageBytes)
}

func (h *Webhook) envelopeKey(userID, messageID string) string {
	// A missing message id must not collapse distinct messages onto one
	// key; an empty key skips dedup instead.
	if strings.TrimSpace(messageID) == "" {
		return ""
	}
	key, err := idempotency.EnvelopeKey(dispatch.PlatformWhatsApp, userID, messageID)
	if err != nil {
		h.log.Warn("whatsapp_envelope_key_error", "error", err.Error())
		return ""
	}
	return key
}

// Webhook payloads nest the interesting part four levels deep. Only the
// first message of the first change is consumed, matching how the Cloud
// API batches per-message notifications.
type webhookPayload struct {
	Entry []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	Messages []inboundMessage `json:"messages"`
}

type inboundMessage struct {
	ID       string           `json:"id"`
	From     string           `json:"from"`
	Type     string           `json:"type,omitempty"`
	Text     *inboundText     `json:"text,omitempty"`
	Image    *inboundImage    `json:"image,omitempty"`
	Location *inboundLocation `json:"location,omitempty"`
}

type inboundText struct {
	Body string `json:"body"`
}

type inboundImage struct {
	ID       string `json:"id"`
	Caption  string `json:"caption,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

type inboundLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p webhookPayload) firstMessage() *inboundMessage {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return nil
	}
	msgs := p.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return nil
	}
	return &msgs[0]
}
