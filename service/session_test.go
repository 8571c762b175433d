package service

import (
	"testing"
	"time"
)

func TestSessionPutGet(t *testing.T) {
	store := NewSessionStore(time.Minute)
	defer store.Close()

	store.Put("whatsapp:+33600000001", PdfSession{MediaURL: "https://example.com/media/1"})

	session, ok := store.Get("whatsapp:+33600000001")
	if !ok {
		t.Fatal("Expected session to exist")
	}
	if session.MediaURL != "https://example.com/media/1" {
		t.Errorf("Unexpected media URL: %s", session.MediaURL)
	}

	if _, ok := store.Get("whatsapp:+33600000002"); ok {
		t.Error("Expected no session for unknown key")
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(20 * time.Millisecond)
	defer store.Close()

	store.Put("key", PdfSession{MediaURL: "https://example.com/media/1"})
	time.Sleep(50 * time.Millisecond)

	if _, ok := store.Get("key"); ok {
		t.Error("Expected session to have expired")
	}
}

func TestSessionOverwrite(t *testing.T) {
	store := NewSessionStore(time.Minute)
	defer store.Close()

	store.Put("key", PdfSession{MediaURL: "https://example.com/media/1"})
	store.Put("key", PdfSession{MediaURL: "https://example.com/media/2"})

	session, _ := store.Get("key")
	if session.MediaURL != "https://example.com/media/2" {
		t.Errorf("Expected latest session to win, got %s", session.MediaURL)
	}
}

func TestSessionForget(t *testing.T) {
	store := NewSessionStore(time.Minute)
	defer store.Close()

	store.Put("key", PdfSession{MediaURL: "https://example.com/media/1"})
	store.Forget("key")

	if _, ok := store.Get("key"); ok {
		t.Error("Expected forgotten session to be gone")
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d entries", store.Len())
	}
}
