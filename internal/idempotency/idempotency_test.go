package idempotency

import "testing"

func TestEnvelopeKeyStable(t *testing.T) {
	a, err := EnvelopeKey("whatsapp", "15551234567", "wamid.HBgL")
	if err != nil {
		t.Fatalf("EnvelopeKey: %v", err)
	}
	b, err := EnvelopeKey("whatsapp", "15551234567", "wamid.HBgL")
	if err != nil {
		t.Fatalf("EnvelopeKey: %v", err)
	}
	if a != b {
		t.Fatalf("same envelope produced different keys: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestEnvelopeKeyDistinguishesFields(t *testing.T) {
	base, _ := EnvelopeKey("whatsapp", "15551234567", "wamid.HBgL")
	cases := []struct {
		name                       string
		source, channel, messageID string
	}{
		{"source", "telegram", "15551234567", "wamid.HBgL"},
		{"channel", "whatsapp", "15557654321", "wamid.HBgL"},
		{"message_id", "whatsapp", "15551234567", "wamid.XXXX"},
	}
	for _, tc := range cases {
		got, err := EnvelopeKey(tc.source, tc.channel, tc.messageID)
		if err != nil {
			t.Fatalf("%s: EnvelopeKey: %v", tc.name, err)
		}
		if got == base {
			t.Fatalf("%s: changed field did not change key", tc.name)
		}
	}
}

func TestEnvelopeKeyFieldsDoNotConcatenateAmbiguously(t *testing.T) {
	a, _ := EnvelopeKey("wa", "1:msg", "x")
	b, _ := EnvelopeKey("wa", "1", "msg:x")
	if a == b {
		t.Fatalf("shifted field boundary produced identical keys")
	}
}
