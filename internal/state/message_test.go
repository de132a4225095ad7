package state

import (
	"testing"
	"time"
)

func TestMessageLedger(t *testing.T) {
	t.Run("IDs are monotonic", func(t *testing.T) {
		s := newTestState()
		a := s.NextMessageID()
		b := s.NextMessageID()
		if a == b {
			t.Errorf("IDs must be unique, got %s twice", a)
		}
	})

	t.Run("Ack is terminal", func(t *testing.T) {
		s := newTestState()
		id := s.NextMessageID()
		s.AppendMessage(NewMessage(DirectionTX, "KI9NG", "N9XYZ-9", "hello", id, StatusSending, time.Now()))

		if !s.AckMessage(id) {
			t.Fatal("Expected ack to land")
		}
		// A late send-completion must not regress the status.
		s.SetMessageStatus(id, StatusSent)

		msgs := s.Messages()
		if msgs[0].Status != StatusAcked {
			t.Errorf("Expected acked to stick, got %s", msgs[0].Status)
		}
	})

	t.Run("Ack only matches outgoing messages", func(t *testing.T) {
		s := newTestState()
		s.AppendMessage(NewMessage(DirectionRX, "N9XYZ-9", "KI9NG", "hi", "42", StatusReceived, time.Now()))
		if s.AckMessage("42") {
			t.Error("Received messages must not be ackable")
		}
	})

	t.Run("Unknown id ack is ignored", func(t *testing.T) {
		s := newTestState()
		if s.AckMessage("999") {
			t.Error("Ack for unknown id should report no match")
		}
	})
}

func TestMessageImportReseedsIDs(t *testing.T) {
	s := newTestState()
	now := time.Now()
	s.ImportMessages([]*Message{
		NewMessage(DirectionTX, "KI9NG", "N9XYZ-9", "one", "7", StatusSent, now),
		NewMessage(DirectionRX, "N9XYZ-9", "KI9NG", "two", "99", StatusReceived, now),
	})

	// Only outgoing ids seed the counter; the next id must not collide
	// with any persisted outgoing id.
	if id := s.NextMessageID(); id != "8" {
		t.Errorf("Expected next id 8 after reload, got %s", id)
	}
}

func TestMessageExportCap(t *testing.T) {
	s := New(Options{MessageHistory: 3})
	now := time.Now()
	for i := 0; i < 5; i++ {
		id := s.NextMessageID()
		s.AppendMessage(NewMessage(DirectionTX, "KI9NG", "N9XYZ-9", "m", id, StatusSending, now))
	}
	out := s.ExportMessages()
	if len(out) != 3 {
		t.Fatalf("Expected export capped at 3, got %d", len(out))
	}
	if out[len(out)-1].ID != "5" {
		t.Errorf("Expected newest message retained, got %s", out[len(out)-1].ID)
	}
}
