package chat

import (
	"context"
	"fmt"

	"github.com/spec-kit/marketplace-bot/internal/events"
)

// Notifier renders lifecycle events as chat messages. It implements service.Sender.
type Notifier struct {
	messenger Messenger
	render    *Renderer
}

// NewNotifier builds a Notifier.
func NewNotifier(messenger Messenger, render *Renderer) *Notifier {
	return &Notifier{messenger: messenger, render: render}
}

// Deliver sends the message for event to recipientID.
func (n *Notifier) Deliver(ctx context.Context, recipientID int64, event events.Event) error {
	var msg Message
	switch event.Type {
	case events.EventNewSubmission:
		msg = n.render.SubmissionAlert(event.Listing)
	case events.EventListingApproved, events.EventListingRejected:
		msg = n.render.DecisionNotice(event.Listing)
	default:
		return fmt.Errorf("no chat rendering for event type %q", event.Type)
	}
	return n.messenger.SendText(ctx, recipientID, msg)
}
