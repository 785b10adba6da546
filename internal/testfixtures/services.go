package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/conference-central/internal/persistence"
	"github.com/example/conference-central/internal/tasks"
)

// ServiceFactory assists tests with constructing task plumbing using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("task"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("task")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// NewDispatcher builds a task dispatcher stamping tasks with the factory
// clock and identifiers.
func (f *ServiceFactory) NewDispatcher(repo persistence.TaskRepository, logger *slog.Logger) *tasks.Dispatcher {
	return tasks.NewDispatcher(repo,
		tasks.WithClock(f.Clock.NowFunc()),
		tasks.WithIDGenerator(f.IDGenerator.NextFunc()),
		tasks.WithDispatcherLogger(logger),
	)
}
