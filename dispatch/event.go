// Package dispatch routes validated inbound events to synchronous
// fast-path handling (profile setup, commands, check-in replies) or to
// an asynchronous analysis unit on the sending user's work queue. The
// transport-facing contract is "accepted for processing": Handle
// returns as soon as the event is answered or enqueued.
package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

const (
	PlatformWhatsApp = "whatsapp"
	PlatformTelegram = "telegram"
)

// Event kinds after channel translation.
const (
	KindText     = "text"
	KindImage    = "image"
	KindLocation = "location"
)

type Location struct {
	Lat float64
	Lon float64
}

// Event is one inbound message in channel-independent form. MessageID
// is the idempotency key derived by the channel runtime; an empty ID
// skips deduplication.
type Event struct {
	UserID    string
	Platform  string
	Kind      string
	Text      string
	Image     []byte
	Location  *Location
	MessageID string
}

// Validate rejects events that would mutate session state without a
// usable payload.
func (e Event) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return errors.New("event missing user id")
	}
	switch e.Platform {
	case PlatformWhatsApp, PlatformTelegram:
	default:
		return fmt.Errorf("unknown platform %q", e.Platform)
	}
	switch e.Kind {
	case KindText:
		if strings.TrimSpace(e.Text) == "" {
			return errors.New("text event without text")
		}
	case KindImage:
		if len(e.Image) == 0 {
			return errors.New("image event without image data")
		}
	case KindLocation:
		if e.Location == nil {
			return errors.New("location event without coordinates")
		}
		if e.Location.Lat < -90 || e.Location.Lat > 90 {
			return fmt.Errorf("latitude %v out of range", e.Location.Lat)
		}
		if e.Location.Lon < -180 || e.Location.Lon > 180 {
			return fmt.Errorf("longitude %v out of range", e.Location.Lon)
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}
