package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/marketplace-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventNewSubmission   EventType = "new_submission"
	EventListingApproved EventType = "listing_approved"
	EventListingRejected EventType = "listing_rejected"
)

// EventTypes lists every event type the lifecycle engine emits.
func EventTypes() []EventType {
	return []EventType{EventNewSubmission, EventListingApproved, EventListingRejected}
}

// Event represents a lifecycle notification emitted after a committed store write.
// Listing is a snapshot taken at publication time.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	ActorID   int64          `json:"actor_id"`
	Listing   domain.Listing `json:"listing"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewSubmission is published once a pending listing has been stored. The actor is the owner.
func NewSubmission(listing domain.Listing, at time.Time) Event {
	return newEvent(EventNewSubmission, listing.OwnerID, listing, at)
}

// Approved is published after a pending listing moved to approved.
func Approved(listing domain.Listing, actorID int64, at time.Time) Event {
	return newEvent(EventListingApproved, actorID, listing, at)
}

// Rejected is published after a pending listing moved to rejected.
func Rejected(listing domain.Listing, actorID int64, at time.Time) Event {
	return newEvent(EventListingRejected, actorID, listing, at)
}

func newEvent(t EventType, actorID int64, listing domain.Listing, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		ActorID:   actorID,
		Listing:   listing,
		Timestamp: at,
	}
}
