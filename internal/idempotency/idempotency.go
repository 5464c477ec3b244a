// Package idempotency derives stable keys for inbound message
// envelopes. Two deliveries of the same provider message always map to
// the same key, regardless of field order in the webhook payload.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	jsoncanonicalizer "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

type envelope struct {
	Source    string `json:"source"`
	Channel   string `json:"channel"`
	MessageID string `json:"message_id"`
}

// EnvelopeKey hashes (source, channel, messageID) over the RFC 8785
// canonical form so the key survives JSON re-encoding differences
// between provider retries.
func EnvelopeKey(source, channel, messageID string) (string, error) {
	raw, err := json.Marshal(envelope{Source: source, Channel: channel, MessageID: messageID})
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize envelope: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
