// Package tasks queues deferred work in the entity store and runs it from a
// polling worker. Delivery is at least once, so handlers must be idempotent.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/conference-central/internal/logging"
	"github.com/example/conference-central/internal/persistence"
)

// Dispatcher persists tasks for the worker to pick up.
type Dispatcher struct {
	repo   persistence.TaskRepository
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithClock overrides the dispatcher clock.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithIDGenerator overrides the task id generator.
func WithIDGenerator(newID func() string) DispatcherOption {
	return func(d *Dispatcher) {
		if newID != nil {
			d.newID = newID
		}
	}
}

// WithDispatcherLogger sets the fallback logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher constructs a dispatcher backed by repo.
func NewDispatcher(repo persistence.TaskRepository, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		repo:   repo,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue stores a task named name that becomes due immediately.
func (d *Dispatcher) Enqueue(ctx context.Context, name string, params map[string]string) error {
	if d == nil || d.repo == nil {
		return fmt.Errorf("tasks: dispatcher is not configured")
	}

	payload, err := encodeParams(params)
	if err != nil {
		return err
	}

	now := d.now().UTC()
	task := persistence.Task{
		ID:          d.newID(),
		Name:        name,
		Payload:     payload,
		AvailableAt: now,
		CreatedAt:   now,
	}
	if err := d.repo.EnqueueTask(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", name, err)
	}

	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = d.logger
	}
	logger.DebugContext(ctx, "task enqueued", "task_id", task.ID, "task_name", name)
	return nil
}
