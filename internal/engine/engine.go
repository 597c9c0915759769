// Package engine orchestrates the aggregation reader, scorer, forecaster and
// progress trackers against storage. It is the only place that commits
// derived state and emits domain events.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Veraticus/finsight/internal/aggregate"
	"github.com/Veraticus/finsight/internal/forecast"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
)

// Categorizer suggests a category label for a transaction description.
// It returns one of labels, or a fallback label it chooses.
type Categorizer interface {
	Categorize(ctx context.Context, description string, labels []string) string
}

// Engine is the finance core bound to a store.
type Engine struct {
	store       service.Storage
	reader      *aggregate.Reader
	notifier    service.Notifier
	jitter      forecast.Jitter
	categorizer Categorizer
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the event sink.
func WithNotifier(n service.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithJitter sets the random source used by health forecasts.
func WithJitter(j forecast.Jitter) Option {
	return func(e *Engine) { e.jitter = j }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCategorizer enables automatic categorization of new transactions.
func WithCategorizer(c Categorizer) Option {
	return func(e *Engine) { e.categorizer = c }
}

// New creates an engine. Without options events are dropped, jitter comes
// from the global math/rand/v2 source and time is time.Now.
func New(store service.Storage, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		reader:   aggregate.NewReader(store),
		notifier: discard{},
		jitter:   globalRand{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// Store returns the engine's storage.
func (e *Engine) Store() service.Storage {
	return e.store
}

// inTx runs fn in a database transaction and emits the collected events
// only after a successful commit.
func (e *Engine) inTx(ctx context.Context, fn func(tx service.Transaction, events *[]model.Event) error) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	var events []model.Event
	if err := fn(tx, &events); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Error("failed to roll back", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	e.emit(ctx, events...)
	return nil
}

// emit delivers events. Notification failures never fail the operation
// that produced them.
func (e *Engine) emit(ctx context.Context, events ...model.Event) {
	for _, ev := range events {
		if err := e.notifier.Notify(ctx, ev); err != nil {
			e.logger.Warn("failed to deliver event", "type", ev.Type, "user_id", ev.UserID, "error", err)
		}
	}
}

type discard struct{}

func (discard) Notify(context.Context, model.Event) error { return nil }

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }
