package state

import (
	"strconv"
	"time"
)

// Message directions and statuses. "tx" entries walk
// sending → sent | failed, and independently sent → acked; "rx" entries
// are created as received and never change.
const (
	DirectionTX = "tx"
	DirectionRX = "rx"

	StatusSending  = "sending"
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusAcked    = "acked"
	StatusReceived = "received"
)

// Message is one ledger entry. JSON field names match the messages.json
// files written by earlier installs.
type Message struct {
	Direction string  `json:"direction"`
	From      string  `json:"from_call"`
	To        string  `json:"to_call"`
	Text      string  `json:"text"`
	ID        string  `json:"msg_id"`
	TS        float64 `json:"ts"`
	TSISO     string  `json:"ts_iso"`
	Status    string  `json:"status"`
}

// NewMessage fills the timestamp pair the clients expect.
func NewMessage(direction, from, to, text, id, status string, now time.Time) *Message {
	return &Message{
		Direction: direction,
		From:      from,
		To:        to,
		Text:      text,
		ID:        id,
		TS:        nowSeconds(now),
		TSISO:     now.UTC().Format(time.RFC3339),
		Status:    status,
	}
}

// NextMessageID returns the next outbound message id from the monotonic
// counter.
func (s *State) NextMessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgSeq++
	return strconv.Itoa(s.msgSeq)
}

// AppendMessage adds a ledger entry.
func (s *State) AppendMessage(m *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.messages = append(s.messages, &cp)
}

// Messages returns a copy of the whole live ledger, oldest first.
func (s *State) Messages() []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Message, len(s.messages))
	for i, m := range s.messages {
		cp := *m
		out[i] = &cp
	}
	return out
}

// AckMessage marks the outbound message with the given id as acked.
// Returns false when no matching tx entry exists; an ack is never
// inserted as a new entry either way. "acked" is terminal, so a late
// status update cannot regress it.
func (s *State) AckMessage(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.Direction == DirectionTX && m.ID == id {
			m.Status = StatusAcked
			return true
		}
	}
	return false
}

// SetMessageStatus updates a ledger entry's delivery status, except that
// an already-acked message keeps its terminal status.
func (s *State) SetMessageStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			if m.Status == StatusAcked {
				return false
			}
			m.Status = status
			return true
		}
	}
	return false
}

// MessageCount returns the live ledger length.
func (s *State) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// ExportMessages returns the most recent MessageHistory entries for
// persistence. Older entries stay in live memory until the next load.
func (s *State) ExportMessages() []*Message {
	all := s.Messages()
	if len(all) > s.opts.MessageHistory {
		all = all[len(all)-s.opts.MessageHistory:]
	}
	return all
}

// ImportMessages seeds the ledger from persisted data, capped to the
// retention count, and re-seeds the outbound id counter past the highest
// persisted id so restarts never reuse a message id.
func (s *State) ImportMessages(msgs []*Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(msgs) > s.opts.MessageHistory {
		msgs = msgs[len(msgs)-s.opts.MessageHistory:]
	}
	s.messages = s.messages[:0]
	for _, m := range msgs {
		cp := *m
		s.messages = append(s.messages, &cp)
		if m.Direction == DirectionTX {
			if n, err := strconv.Atoi(m.ID); err == nil && n > s.msgSeq {
				s.msgSeq = n
			}
		}
	}
	return len(s.messages)
}
