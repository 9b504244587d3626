// Package notification delivers SMS messages to subscribers.
package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/congo-pay/onboarding/internal/otp"
)

// ErrDelivery tags every failed delivery.
var ErrDelivery = errors.New("sms delivery failed")

// Sender delivers an SMS message to a phone number in E.164 form.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender is a development sender that records dispatches in the log.
// Message bodies carry one-time codes, so only their length is logged.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a logging sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send writes a redacted dispatch record to the structured logger.
func (s *LogSender) Send(_ context.Context, phone, message string) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("sms dispatched", "phone", otp.MaskPhone(phone), "length", len(message))
	return nil
}

// Message is a captured SMS.
type Message struct {
	Phone string
	Body  string
}

// MemorySender keeps messages in memory. Fail makes every Send return
// ErrDelivery after recording the attempt.
type MemorySender struct {
	mu       sync.Mutex
	messages []Message
	Fail     bool
}

// NewMemorySender builds an empty outbox.
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, phone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Phone: phone, Body: message})
	if s.Fail {
		return ErrDelivery
	}
	return nil
}

// Messages returns a copy of every captured message.
func (s *MemorySender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Last returns the most recent message for phone.
func (s *MemorySender) Last(phone string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Phone == phone {
			return s.messages[i], true
		}
	}
	return Message{}, false
}
