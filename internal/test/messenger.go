package test

import (
	"context"
	"sync"

	"github.com/polkiloo/resalebot/internal/adapter/telegram"
)

// SentMessage records one outbound delivery attempt.
type SentMessage struct {
	ChatID  string
	Text    string
	Photo   string
	Buttons [][]telegram.Button
}

// EditedMessage records one in-place message rewrite.
type EditedMessage struct {
	ChatID    string
	MessageID int64
	Text      string
	Buttons   [][]telegram.Button
}

// AnsweredCallback records one callback acknowledgement.
type AnsweredCallback struct {
	CallbackID string
	Text       string
	Alert      bool
}

// MessengerStub implements the messaging client with recorded calls.
type MessengerStub struct {
	mu        sync.Mutex
	Sent      []SentMessage
	Edited    []EditedMessage
	Answered  []AnsweredCallback
	NextID    int64
	SendErr   map[string]error
	EditErr   error
	AnswerErr error

	SendMessageFn func(context.Context, string, string, [][]telegram.Button) (int64, error)
	SendPhotoFn   func(context.Context, string, string, string, [][]telegram.Button) (int64, error)
}

// NewMessengerStub constructs the stub with message ids starting at 100.
func NewMessengerStub() *MessengerStub {
	return &MessengerStub{NextID: 100, SendErr: make(map[string]error)}
}

// SendMessage records the delivery and returns the next message id.
func (s *MessengerStub) SendMessage(ctx context.Context, chatID, text string, buttons [][]telegram.Button) (int64, error) {
	if s.SendMessageFn != nil {
		return s.SendMessageFn(ctx, chatID, text, buttons)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.SendErr[chatID]; ok && err != nil {
		return 0, err
	}
	s.NextID++
	s.Sent = append(s.Sent, SentMessage{ChatID: chatID, Text: text, Buttons: buttons})
	return s.NextID, nil
}

// SendPhoto records the delivery and returns the next message id.
func (s *MessengerStub) SendPhoto(ctx context.Context, chatID, photo, caption string, buttons [][]telegram.Button) (int64, error) {
	if s.SendPhotoFn != nil {
		return s.SendPhotoFn(ctx, chatID, photo, caption, buttons)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.SendErr[chatID]; ok && err != nil {
		return 0, err
	}
	s.NextID++
	s.Sent = append(s.Sent, SentMessage{ChatID: chatID, Text: caption, Photo: photo, Buttons: buttons})
	return s.NextID, nil
}

// EditMessage records the rewrite.
func (s *MessengerStub) EditMessage(ctx context.Context, chatID string, messageID int64, text string, buttons [][]telegram.Button) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EditErr != nil {
		return s.EditErr
	}
	s.Edited = append(s.Edited, EditedMessage{ChatID: chatID, MessageID: messageID, Text: text, Buttons: buttons})
	return nil
}

// AnswerCallback records the acknowledgement.
func (s *MessengerStub) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AnswerErr != nil {
		return s.AnswerErr
	}
	s.Answered = append(s.Answered, AnsweredCallback{CallbackID: callbackID, Text: text, Alert: alert})
	return nil
}

// EditedMessages returns a copy of the recorded rewrites.
func (s *MessengerStub) EditedMessages() []EditedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EditedMessage, len(s.Edited))
	copy(out, s.Edited)
	return out
}

// SentTo returns deliveries recorded for the chat.
func (s *MessengerStub) SentTo(chatID string) []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SentMessage
	for _, m := range s.Sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

var _ telegram.Client = (*MessengerStub)(nil)
