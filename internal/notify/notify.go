// Package notify delivers engine events to logs, storage and tests.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
)

// LogNotifier writes every event to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier logging through logger, or the default
// logger when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

// Notify logs the event.
func (n *LogNotifier) Notify(ctx context.Context, e model.Event) error {
	n.logger.InfoContext(ctx, "event",
		"type", e.Type,
		"user_id", e.UserID,
		"entity_id", e.EntityID,
		"message", e.Message)
	return nil
}

// StoreNotifier persists events as user notifications.
type StoreNotifier struct {
	store service.NotificationStore
}

// NewStoreNotifier creates a notifier writing to store.
func NewStoreNotifier(store service.NotificationStore) *StoreNotifier {
	return &StoreNotifier{store: store}
}

// Notify stores the event as an unread notification.
func (n *StoreNotifier) Notify(ctx context.Context, e model.Event) error {
	return n.store.CreateNotification(ctx, &model.Notification{
		UserID:    e.UserID,
		Type:      e.Type,
		EntityID:  e.EntityID,
		Message:   e.Message,
		CreatedAt: e.OccurredAt,
	})
}

// Multi fans an event out to several notifiers. Every notifier is called;
// their errors are joined.
type Multi []service.Notifier

// Notify delivers e to each notifier.
func (m Multi) Notify(ctx context.Context, e model.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps events in memory.
type Recorder struct {
	events []model.Event
	mu     sync.Mutex
}

// Notify records e.
func (r *Recorder) Notify(_ context.Context, e model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t model.EventType) []model.Event {
	var out []model.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ service.Notifier = (*LogNotifier)(nil)
	_ service.Notifier = (*StoreNotifier)(nil)
	_ service.Notifier = Multi(nil)
	_ service.Notifier = (*Recorder)(nil)
)
