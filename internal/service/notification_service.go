package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spec-kit/marketplace-bot/internal/config"
	"github.com/spec-kit/marketplace-bot/internal/events"
	"github.com/spec-kit/marketplace-bot/internal/observability"
	"github.com/spec-kit/marketplace-bot/internal/repository"
)

// Sender delivers one lifecycle notification to one chat user.
type Sender interface {
	Deliver(ctx context.Context, recipientID int64, event events.Event) error
}

// DeliveryResult is the outcome of delivering an event to one recipient.
type DeliveryResult struct {
	RecipientID int64
	Err         error
}

// NotificationService fans lifecycle events out to their recipients. Each delivery is isolated:
// a failing recipient is logged and counted but never affects the others or the publisher.
type NotificationService struct {
	dispatcher  events.Dispatcher
	users       repository.UserRepository
	sender      Sender
	limiter     *rate.Limiter
	concurrency int
	sendTimeout time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	UserRepo   repository.UserRepository
	Sender     Sender
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies, cfg config.NotificationConfig) *NotificationService {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = concurrency
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:  deps.Dispatcher,
		users:       deps.UserRepo,
		sender:      deps.Sender,
		limiter:     rate.NewLimiter(limit, burst),
		concurrency: concurrency,
		sendTimeout: cfg.SendTimeout(),
		logger:      logger,
		metrics:     deps.Metrics,
	}
}

// RegisterHandlers subscribes to every lifecycle event type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.EventTypes() {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	results, err := n.Notify(ctx, event)
	if err != nil {
		return err
	}
	delivered := 0
	for _, r := range results {
		if r.Err == nil {
			delivered++
		}
	}
	n.logger.Info("notifications sent",
		zap.String("event_type", string(event.Type)),
		zap.Int64("listing_id", event.Listing.ID),
		zap.Int("recipients", len(results)),
		zap.Int("delivered", delivered))
	return nil
}

// Notify delivers event to each of its recipients concurrently and reports every outcome.
// The returned error covers recipient resolution only; delivery failures are in the results.
func (n *NotificationService) Notify(ctx context.Context, event events.Event) ([]DeliveryResult, error) {
	recipients, err := n.recipients(ctx, event)
	if err != nil {
		return nil, err
	}

	results := make([]DeliveryResult, len(recipients))
	var g errgroup.Group
	g.SetLimit(n.concurrency)
	for i, recipientID := range recipients {
		g.Go(func() error {
			results[i] = DeliveryResult{RecipientID: recipientID, Err: n.deliver(ctx, recipientID, event)}
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (n *NotificationService) recipients(ctx context.Context, event events.Event) ([]int64, error) {
	switch event.Type {
	case events.EventNewSubmission:
		return n.users.ListAdminIDs(ctx)
	case events.EventListingApproved, events.EventListingRejected:
		return []int64{event.Listing.OwnerID}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}
}

func (n *NotificationService) deliver(ctx context.Context, recipientID int64, event events.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panic: %v", r)
		}
		n.metrics.RecordDelivery(string(event.Type), err == nil)
		if err != nil {
			n.logger.Warn("DeliveryFailure",
				zap.Int64("recipient_id", recipientID),
				zap.String("event_type", string(event.Type)),
				zap.Int64("listing_id", event.Listing.ID),
				zap.Error(err))
		}
	}()

	if n.sender == nil {
		return fmt.Errorf("no sender configured")
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()
	return n.sender.Deliver(sendCtx, recipientID, event)
}
