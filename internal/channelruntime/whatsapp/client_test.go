package whatsapp

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestSendPostsGraphPayload(t *testing.T) {
	s := newGraphServer(t)
	c := s.client()

	if err := c.Send(context.Background(), "919812345678", "Feeling better today?"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	sent := s.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(sent))
	}
	msg := sent[0]
	if msg.MessagingProduct != "whatsapp" {
		t.Fatalf("messaging_product = %q", msg.MessagingProduct)
	}
	if msg.To != "919812345678" {
		t.Fatalf("to = %q", msg.To)
	}
	if msg.Type != "text" {
		t.Fatalf("type = %q", msg.Type)
	}
	if msg.Text.Body != "Feeling better today?" {
		t.Fatalf("body = %q", msg.Text.Body)
	}
	s.mu.Lock()
	auth := s.lastAuth
	s.mu.Unlock()
	if auth != "Bearer "+testToken {
		t.Fatalf("authorization = %q", auth)
	}
}

func TestSendSurfacesGraphRejection(t *testing.T) {
	s := newGraphServer(t)
	s.sendStatuses = []int{http.StatusBadRequest}
	c := s.client()

	err := c.Send(context.Background(), "15550009999", "hello")
	if err == nil {
		t.Fatal("expected an error for a rejected send")
	}
	if !strings.Contains(err.Error(), "http 400") {
		t.Fatalf("error = %v, want the status in it", err)
	}
	if !strings.Contains(err.Error(), "not in allowed list") {
		t.Fatalf("error = %v, want the Graph message in it", err)
	}
	// Client errors are not worth retrying.
	if sent := s.sentMessages(); len(sent) != 1 {
		t.Fatalf("got %d attempts, want 1", len(sent))
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	s := newGraphServer(t)
	s.sendStatuses = []int{http.StatusInternalServerError}
	c := s.client()

	if err := c.Send(context.Background(), "919812345678", "hello"); err != nil {
		t.Fatalf("Send after retry: %v", err)
	}
	if sent := s.sentMessages(); len(sent) != 2 {
		t.Fatalf("got %d attempts, want 2", len(sent))
	}
}

func TestSendValidatesInput(t *testing.T) {
	c := newGraphServer(t).client()

	if err := c.Send(context.Background(), "", "hello"); err == nil {
		t.Fatal("expected an error for an empty recipient")
	}
	if err := c.Send(context.Background(), "919812345678", "   "); err == nil {
		t.Fatal("expected an error for empty text")
	}
}

func TestMediaURLThenDownload(t *testing.T) {
	s := newGraphServer(t)
	payload := []byte("jpeg-bytes-here")
	s.media["MEDIA77"] = payload
	c := s.client()

	u, err := c.mediaURL(context.Background(), "MEDIA77")
	if err != nil {
		t.Fatalf("mediaURL: %v", err)
	}
	if !strings.HasSuffix(u, "/media/MEDIA77") {
		t.Fatalf("lookaside url = %q", u)
	}

	data, err := c.downloadMedia(context.Background(), u, 1<<20)
	if err != nil {
		t.Fatalf("downloadMedia: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("downloaded %d bytes, want %d", len(data), len(payload))
	}
}

func TestMediaURLUnknownID(t *testing.T) {
	c := newGraphServer(t).client()

	if _, err := c.mediaURL(context.Background(), "MISSING"); err == nil {
		t.Fatal("expected an error for an unknown media id")
	}
}

func TestDownloadRejectsEmptyMedia(t *testing.T) {
	s := newGraphServer(t)
	s.media["EMPTY"] = []byte{}
	c := s.client()

	u, err := c.mediaURL(context.Background(), "EMPTY")
	if err != nil {
		t.Fatalf("mediaURL: %v", err)
	}
	if _, err := c.downloadMedia(context.Background(), u, 1<<20); err == nil {
		t.Fatal("expected an error for empty media content")
	}
}

func TestDownloadEnforcesSizeCap(t *testing.T) {
	s := newGraphServer(t)
	s.media["BIG"] = bytes.Repeat([]byte{0xab}, 64)
	c := s.client()

	u, err := c.mediaURL(context.Background(), "BIG")
	if err != nil {
		t.Fatalf("mediaURL: %v", err)
	}
	if _, err := c.downloadMedia(context.Background(), u, 16); err == nil {
		t.Fatal("expected an error for media over the cap")
	}
}
