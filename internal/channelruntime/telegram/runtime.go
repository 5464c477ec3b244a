// Package telegram runs the Telegram side of the bot: a getUpdates
// long-poll loop that translates chat messages into dispatch events, and
// the sendMessage client the outbound router delivers replies through.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/dispatch"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/idempotency"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/messages"
)

// Handler consumes translated inbound events. *dispatch.Dispatcher
// satisfies it.
type Handler interface {
	Handle(ctx context.Context, ev dispatch.Event) error
}

type Runtime struct {
	api  *telegramAPI
	disp Handler
	cat  messages.Catalog
	log  *slog.Logger
	opts Options
}

func New(opts Options, disp Handler, cat messages.Catalog, log *slog.Logger) (*Runtime, error) {
	opts = normalizeOptions(opts)
	if opts.BotToken == "" {
		return nil, fmt.Errorf("missing telegram.bot_token")
	}
	if disp == nil {
		return nil, fmt.Errorf("missing dispatcher")
	}
	if log == nil {
		log = slog.Default()
	}
	httpClient := &http.Client{Timeout: 60 * time.Second}
	return &Runtime{
		api:  newTelegramAPI(httpClient, opts.BaseURL, opts.BotToken),
		disp: disp,
		cat:  cat,
		log:  log,
		opts: opts,
	}, nil
}

// Send delivers one message to a chat. The recipient is the chat id in
// decimal form, as carried in dispatch.Event.UserID.
func (r *Runtime) Send(ctx context.Context, recipient, text string) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(recipient), 10, 64)
	if err != nil {
		return fmt.Errorf("telegram recipient %q: %w", recipient, err)
	}
	return r.api.sendMessage(ctx, chatID, text)
}

// Run polls getUpdates until ctx is canceled. Poll timeouts are part of
// normal long polling and stay at debug level; other errors log and back
// off a second before the next attempt.
func (r *Runtime) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var me *telegramUser
	for {
		var err error
		me, err = r.api.getMe(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			r.log.Info("telegram_stop", "reason", "context_canceled")
			return nil
		}
		r.log.Warn("telegram_get_me_error", "error", err.Error())
		select {
		case <-ctx.Done():
			r.log.Info("telegram_stop", "reason", "context_canceled")
			return nil
		case <-time.After(2 * time.Second):
		}
	}

	r.log.Info("telegram_start",
		"bot_username", me.Username,
		"bot_id", me.ID,
		"poll_timeout", r.opts.PollTimeout.String(),
	)

	var offset int64
	for {
		updates, next, err := r.api.getUpdates(ctx, offset, r.opts.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				r.log.Info("telegram_stop", "reason", "context_canceled")
				return nil
			}
			if isTelegramPollTimeoutError(err) {
				r.log.Debug("telegram_get_updates_timeout", "error", err.Error())
			} else {
				r.log.Warn("telegram_get_updates_error", "error", err.Error())
			}
			select {
			case <-ctx.Done():
				r.log.Info("telegram_stop", "reason", "context_canceled")
				return nil
			case <-time.After(1 * time.Second):
			}
			continue
		}
		offset = next

		// Updates are handled in arrival order so two texts from the
		// same chat cannot race the profile-setup steps.
		for _, u := range updates {
			r.handleUpdate(ctx, u)
		}
	}
}

func (r *Runtime) handleUpdate(ctx context.Context, u telegramUpdate) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := strconv.FormatInt(chatID, 10)

	ev := dispatch.Event{
		UserID:    userID,
		Platform:  dispatch.PlatformTelegram,
		MessageID: r.envelopeKey(userID, msg.MessageID),
	}

	switch {
	case strings.TrimSpace(msg.Text) != "":
		text := strings.TrimSpace(msg.Text)
		// Bot commands arrive as "/start", "/help" and so on; the
		// dispatcher speaks bare words.
		if strings.HasPrefix(text, "/") {
			text = strings.TrimSpace(strings.TrimPrefix(text, "/"))
		}
		if text == "" {
			return
		}
		ev.Kind = dispatch.KindText
		ev.Text = text
	case len(msg.Photo) > 0:
		img, err := r.fetchPhoto(ctx, msg.Photo)
		if err != nil {
			r.log.Warn("telegram_image_fetch_error", "chat_id", chatID, "error", err.Error())
			if sendErr := r.api.sendMessage(ctx, chatID, r.cat.ImageError); sendErr != nil {
				r.log.Warn("telegram_send_error", "chat_id", chatID, "error", sendErr.Error())
			}
			return
		}
		ev.Kind = dispatch.KindImage
		ev.Image = img
		ev.Text = strings.TrimSpace(msg.Caption)
	case msg.Location != nil:
		ev.Kind = dispatch.KindLocation
		ev.Location = &dispatch.Location{
			Lat: msg.Location.Latitude,
			Lon: msg.Location.Longitude,
		}
	default:
		// Stickers, voice notes and other media the bot cannot read.
		r.log.Debug("telegram_update_ignored", "chat_id", chatID, "message_id", msg.MessageID)
		return
	}

	if err := r.disp.Handle(ctx, ev); err != nil {
		r.log.Warn("telegram_event_error", "chat_id", chatID, "kind", ev.Kind, "error", err.Error())
	}
}

// fetchPhoto downloads the largest rendition of a photo message.
// Telegram orders the size list smallest to largest.
func (r *Runtime) fetchPhoto(ctx context.Context, sizes []telegramPhotoSize) ([]byte, error) {
	largest := sizes[len(sizes)-1]
	f, err := r.api.getFile(ctx, largest.FileID)
	if err != nil {
		return nil, err
	}
	return r.api.downloadFile(ctx, f.FilePath, r.opts.MaxImageBytes)
}

func (r *Runtime) envelopeKey(userID string, messageID int64) string {
	// A missing message id must not collapse distinct messages onto one
	// key; an empty key skips dedup instead.
	if messageID <= 0 {
		return ""
	}
	key, err := idempotency.EnvelopeKey(dispatch.PlatformTelegram, userID, strconv.FormatInt(messageID, 10))
	if err != nil {
		// Without a key the event skips dedup but is still handled.
		r.log.Warn("telegram_envelope_key_error", "chat_id", userID, "error", err.Error())
		return ""
	}
	return key
}
