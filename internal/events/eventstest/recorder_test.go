package eventstest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/marketplace-bot/internal/domain"
	"github.com/spec-kit/marketplace-bot/internal/events"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Publish(context.Background(), events.NewSubmission(domain.Listing{ID: 1}, time.Now()))
	_ = r.Publish(context.Background(), events.Approved(domain.Listing{ID: 1}, 2, time.Now()))

	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.OfType(events.EventListingApproved), 1)
}
