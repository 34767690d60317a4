// Package worker runs lifecycle event handlers off the request path.
package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-bot/internal/config"
	"github.com/spec-kit/marketplace-bot/internal/events"
	"github.com/spec-kit/marketplace-bot/internal/service"
)

// ErrStopped is returned by Publish once the worker has been stopped.
var ErrStopped = errors.New("notification worker stopped")

// NotificationWorker is an events.Dispatcher that queues published events and hands them to the
// wrapped dispatcher from a fixed pool of goroutines. Publishers never wait on delivery.
type NotificationWorker struct {
	inner   events.Dispatcher
	queue   chan queued
	workers int
	logger  *zap.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	start   sync.Once
}

type queued struct {
	ctx   context.Context
	event events.Event
}

// NewNotificationWorker wraps inner. Nothing is delivered until Start is called.
func NewNotificationWorker(inner events.Dispatcher, cfg config.NotificationConfig, logger *zap.Logger) *NotificationWorker {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		inner:   inner,
		queue:   make(chan queued, size),
		workers: workers,
		logger:  logger,
	}
}

// StartNotificationWorker registers notification handlers and starts delivery. The service must
// have been built with worker as its dispatcher.
func StartNotificationWorker(worker *NotificationWorker, notifications *service.NotificationService) {
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if worker != nil {
		worker.Start()
	}
}

// Publish enqueues event. It blocks only while the queue is full, until ctx is done.
func (w *NotificationWorker) Publish(ctx context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers handler on the wrapped dispatcher.
func (w *NotificationWorker) Subscribe(eventType events.EventType, handler events.EventHandler) {
	w.inner.Subscribe(eventType, handler)
}

// Start launches the worker goroutines. Calling it more than once has no effect.
func (w *NotificationWorker) Start() {
	w.start.Do(func() {
		for i := 0; i < w.workers; i++ {
			w.wg.Add(1)
			go w.run()
		}
	})
}

// Stop rejects further events, drains the queue and waits for in-flight deliveries or ctx.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.Start()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *NotificationWorker) run() {
	defer w.wg.Done()
	for item := range w.queue {
		if err := w.inner.Publish(item.ctx, item.event); err != nil {
			w.logger.Warn("event handlers failed",
				zap.String("event_id", item.event.ID),
				zap.String("event_type", string(item.event.Type)),
				zap.Error(err))
		}
	}
}
