package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/conference-central/internal/persistence"
)

// Handler runs one task. Returning an error schedules a retry.
type Handler interface {
	Handle(ctx context.Context, params map[string]string) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, params map[string]string) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, params map[string]string) error {
	return f(ctx, params)
}

// Config controls worker polling and retry behaviour.
type Config struct {
	PollInterval  time.Duration
	LeaseTTL      time.Duration
	BatchSize     int
	MaxAttempts   int
	RetryBackoff  time.Duration
	RetryMaxDelay time.Duration
}

const (
	defaultPollInterval  = time.Second
	defaultLeaseTTL      = 30 * time.Second
	defaultBatchSize     = 16
	defaultMaxAttempts   = 5
	defaultRetryBackoff  = time.Second
	defaultRetryMaxDelay = 5 * time.Minute
)

func (c Config) normalized() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = defaultLeaseTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.RetryMaxDelay < c.RetryBackoff {
		c.RetryMaxDelay = max(defaultRetryMaxDelay, c.RetryBackoff)
	}
	return c
}

// Worker claims due tasks and dispatches them to handlers by name.
type Worker struct {
	repo     persistence.TaskRepository
	handlers map[string]Handler
	config   Config
	now      func() time.Time
	logger   *slog.Logger
}

// NewWorker constructs a worker. A nil logger uses slog.Default.
func NewWorker(repo persistence.TaskRepository, handlers map[string]Handler, config Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	registered := make(map[string]Handler, len(handlers))
	for name, handler := range handlers {
		if handler != nil {
			registered[name] = handler
		}
	}
	return &Worker{
		repo:     repo,
		handlers: registered,
		config:   config.normalized(),
		now:      time.Now,
		logger:   logger.With("component", "task_worker"),
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.repo == nil {
		return fmt.Errorf("tasks: worker is not configured")
	}

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "task worker started", "poll_interval", w.config.PollInterval.String())
	for {
		if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "task poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			w.logger.InfoContext(context.WithoutCancel(ctx), "task worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch of due tasks and processes it. It reports how many
// tasks were claimed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	tasks, err := w.repo.ClaimDueTasks(ctx, w.now().UTC(), w.config.LeaseTTL, w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due tasks: %w", err)
	}
	for _, task := range tasks {
		if ctx.Err() != nil {
			return len(tasks), ctx.Err()
		}
		w.process(ctx, task)
	}
	return len(tasks), nil
}

func (w *Worker) process(ctx context.Context, task persistence.Task) {
	logger := w.logger.With("task_id", task.ID, "task_name", task.Name, "attempt", task.Attempts)

	handler, ok := w.handlers[task.Name]
	if !ok {
		logger.WarnContext(ctx, "dropping task with no handler")
		w.delete(ctx, logger, task)
		return
	}

	params, err := decodeParams(task.Payload)
	if err != nil {
		logger.ErrorContext(ctx, "dropping task with unreadable payload", "error", err)
		w.delete(ctx, logger, task)
		return
	}

	if err := handler.Handle(ctx, params); err != nil {
		if task.Attempts >= w.config.MaxAttempts {
			logger.ErrorContext(ctx, "task failed permanently", "error", err)
			w.delete(ctx, logger, task)
			return
		}
		retryAt := w.now().UTC().Add(w.backoff(task.Attempts))
		logger.WarnContext(ctx, "task failed, retrying", "error", err, "retry_at", retryAt)
		if rErr := w.repo.RescheduleTask(ctx, task.ID, retryAt, err.Error()); rErr != nil {
			logger.ErrorContext(ctx, "failed to reschedule task", "error", rErr)
		}
		return
	}

	logger.InfoContext(ctx, "task completed")
	w.delete(ctx, logger, task)
}

func (w *Worker) delete(ctx context.Context, logger *slog.Logger, task persistence.Task) {
	if err := w.repo.DeleteTask(ctx, task.ID); err != nil && !errors.Is(err, persistence.ErrNotFound) {
		logger.ErrorContext(ctx, "failed to delete task", "error", err)
	}
}

// backoff doubles the delay for every attempt already made.
func (w *Worker) backoff(attempts int) time.Duration {
	delay := w.config.RetryBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= w.config.RetryMaxDelay {
			return w.config.RetryMaxDelay
		}
	}
	return delay
}
