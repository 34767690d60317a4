package chat

import (
	"context"
	"sync"
)

type sent struct {
	Kind        string
	RecipientID int64
	MediaRef    string
	Message     Message
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeMessenger) SendText(_ context.Context, recipientID int64, msg Message) error {
	f.record(sent{Kind: "text", RecipientID: recipientID, Message: msg})
	return nil
}

func (f *fakeMessenger) SendMedia(_ context.Context, recipientID int64, mediaRef string, msg Message) error {
	f.record(sent{Kind: "media", RecipientID: recipientID, MediaRef: mediaRef, Message: msg})
	return nil
}

func (f *fakeMessenger) SendAlert(_ context.Context, recipientID int64, text string) error {
	f.record(sent{Kind: "alert", RecipientID: recipientID, Message: Message{Text: text}})
	return nil
}

func (f *fakeMessenger) record(s sent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
}

func (f *fakeMessenger) last(recipientID int64) sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].RecipientID == recipientID {
			return f.sent[i]
		}
	}
	return sent{}
}

func (f *fakeMessenger) to(recipientID int64) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.sent {
		if s.RecipientID == recipientID {
			out = append(out, s)
		}
	}
	return out
}
