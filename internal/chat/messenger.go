package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Button is an inline button attached to a message.
type Button struct {
	Text   string `json:"text"`
	Action string `json:"action"`
}

// Message is an outbound chat message. Text is HTML when HTML is set. Keyboard replaces the
// user's reply keyboard; Buttons are attached inline.
type Message struct {
	Text     string     `json:"text"`
	HTML     bool       `json:"html,omitempty"`
	Keyboard [][]string `json:"keyboard,omitempty"`
	Buttons  [][]Button `json:"buttons,omitempty"`
}

// Messenger sends messages through the chat transport.
type Messenger interface {
	SendText(ctx context.Context, recipientID int64, msg Message) error
	SendMedia(ctx context.Context, recipientID int64, mediaRef string, msg Message) error
	// SendAlert shows a short popup in reply to an inline action.
	SendAlert(ctx context.Context, recipientID int64, text string) error
}

type outboundRequest struct {
	Method      string  `json:"method"`
	RecipientID int64   `json:"recipient_id"`
	MediaRef    string  `json:"media_ref,omitempty"`
	Message     Message `json:"message"`
}

// WebhookMessenger posts outbound messages as JSON to the transport's outbound endpoint.
type WebhookMessenger struct {
	url    string
	token  string
	client *http.Client
}

// HTTPError reports a non-2xx answer from the transport.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("chat transport returned %d: %s", e.Status, e.Body)
}

// NewWebhookMessenger builds a messenger for url, authenticating with a bearer token when set.
func NewWebhookMessenger(url, token string, timeout time.Duration) *WebhookMessenger {
	return &WebhookMessenger{url: url, token: token, client: &http.Client{Timeout: timeout}}
}

func (w *WebhookMessenger) SendText(ctx context.Context, recipientID int64, msg Message) error {
	return w.post(ctx, outboundRequest{Method: "sendText", RecipientID: recipientID, Message: msg})
}

func (w *WebhookMessenger) SendMedia(ctx context.Context, recipientID int64, mediaRef string, msg Message) error {
	return w.post(ctx, outboundRequest{Method: "sendMedia", RecipientID: recipientID, MediaRef: mediaRef, Message: msg})
}

func (w *WebhookMessenger) SendAlert(ctx context.Context, recipientID int64, text string) error {
	return w.post(ctx, outboundRequest{Method: "sendAlert", RecipientID: recipientID, Message: Message{Text: text}})
}

func (w *WebhookMessenger) post(ctx context.Context, payload outboundRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode outbound message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	res, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &HTTPError{Status: res.StatusCode, Body: string(snippet)}
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

// LogMessenger writes outbound messages to the log. It is used when no transport URL is configured.
type LogMessenger struct {
	logger *zap.Logger
}

// NewLogMessenger builds a LogMessenger.
func NewLogMessenger(logger *zap.Logger) *LogMessenger {
	return &LogMessenger{logger: logger}
}

func (l *LogMessenger) SendText(_ context.Context, recipientID int64, msg Message) error {
	l.logger.Info("chat send text", zap.Int64("recipient_id", recipientID), zap.String("text", msg.Text))
	return nil
}

func (l *LogMessenger) SendMedia(_ context.Context, recipientID int64, mediaRef string, msg Message) error {
	l.logger.Info("chat send media",
		zap.Int64("recipient_id", recipientID),
		zap.String("media_ref", mediaRef),
		zap.String("caption", msg.Text))
	return nil
}

func (l *LogMessenger) SendAlert(_ context.Context, recipientID int64, text string) error {
	l.logger.Info("chat send alert", zap.Int64("recipient_id", recipientID), zap.String("text", text))
	return nil
}
