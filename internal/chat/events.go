// Package chat is the boundary between the chat transport and the marketplace services.
package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/marketplace-bot/internal/domain"
)

// EventKind enumerates inbound event types delivered by the transport.
type EventKind string

const (
	EventUserInteracted EventKind = "user_interacted"
	EventTextReceived   EventKind = "text_received"
	EventMediaReceived  EventKind = "media_received"
	EventActionInvoked  EventKind = "action_invoked"
)

// Sender identifies the chat user behind an inbound event.
type Sender struct {
	ID          int64   `json:"id"`
	DisplayName string  `json:"display_name"`
	Handle      *string `json:"handle,omitempty"`
}

// InboundEvent is one update from the transport.
type InboundEvent struct {
	Kind     EventKind `json:"kind"`
	From     Sender    `json:"from"`
	Text     string    `json:"text,omitempty"`
	MediaRef string    `json:"media_ref,omitempty"`
	Action   string    `json:"action,omitempty"`
}

// Validate checks that the fields required by Kind are present.
func (e InboundEvent) Validate() error {
	if e.From.ID == 0 {
		return errors.New("missing sender id")
	}
	switch e.Kind {
	case EventUserInteracted:
	case EventTextReceived:
		if strings.TrimSpace(e.Text) == "" {
			return errors.New("empty text")
		}
	case EventMediaReceived:
		if e.MediaRef == "" {
			return errors.New("missing media reference")
		}
	case EventActionInvoked:
		if _, err := ParseAction(e.Action); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}

// ActionVerb is the operation carried by an inline button.
type ActionVerb string

const (
	ActionApprove ActionVerb = "approve"
	ActionReject  ActionVerb = "reject"
	ActionDetails ActionVerb = "details"
	ActionContact ActionVerb = "contact"
	ActionBrowse  ActionVerb = "browse"
)

// Action is the decoded payload of an inline button. Browse carries a category; every other
// verb targets a listing.
type Action struct {
	Verb      ActionVerb
	ListingID int64
	Category  domain.Category
}

// Encode renders the action as the compact "verb:argument" string sent back by the transport.
func (a Action) Encode() string {
	if a.Verb == ActionBrowse {
		return string(a.Verb) + ":" + string(a.Category)
	}
	return string(a.Verb) + ":" + strconv.FormatInt(a.ListingID, 10)
}

// ParseAction decodes an encoded action.
func ParseAction(raw string) (Action, error) {
	verb, arg, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || arg == "" {
		return Action{}, fmt.Errorf("malformed action %q", raw)
	}

	switch ActionVerb(verb) {
	case ActionApprove, ActionReject, ActionDetails, ActionContact:
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return Action{}, fmt.Errorf("malformed listing id in action %q", raw)
		}
		return Action{Verb: ActionVerb(verb), ListingID: id}, nil
	case ActionBrowse:
		category := domain.Category(arg)
		if !category.Valid() {
			return Action{}, fmt.Errorf("unknown category in action %q", raw)
		}
		return Action{Verb: ActionBrowse, Category: category}, nil
	default:
		return Action{}, fmt.Errorf("unknown action verb %q", verb)
	}
}
