// Package outbound routes replies to the channel client that can
// deliver them. One router instance serves both the dispatcher and the
// follow-up scheduler.
package outbound

import (
	"context"
	"log/slog"
	"sync"
)

// MaxMessageRunes is the per-message channel limit; both supported
// channels cap text payloads at 4096 characters.
const MaxMessageRunes = 4096

// Client delivers one text to a channel-specific recipient.
type Client interface {
	Send(ctx context.Context, recipient, text string) error
}

type Router struct {
	mu      sync.RWMutex
	clients map[string]Client
	log     *slog.Logger
}

func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{clients: make(map[string]Client), log: log}
}

func (r *Router) Register(platform string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[platform] = c
}

// SendMessage implements the send contract shared by the dispatcher and
// the follow-up scheduler: true means the channel accepted the message,
// not that the user received it.
func (r *Router) SendMessage(ctx context.Context, userID, platform, text string) bool {
	r.mu.RLock()
	c, ok := r.clients[platform]
	r.mu.RUnlock()
	if !ok {
		r.log.Error("outbound_unknown_platform", "platform", platform, "user_id", userID)
		return false
	}
	if err := c.Send(ctx, userID, Truncate(text)); err != nil {
		r.log.Warn("outbound_send_failed", "platform", platform, "user_id", userID, "error", err)
		return false
	}
	return true
}

// Truncate hard-cuts text at the channel limit.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMessageRunes {
		return text
	}
	return string(runes[:MaxMessageRunes])
}
