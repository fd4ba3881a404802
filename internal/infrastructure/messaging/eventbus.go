// Package messaging implements the in-process event bus that carries domain
// events (prayer completions, XP awards, level-ups, badge and challenge
// events) to interested subscribers.
package messaging

import (
	"errors"
	"sync"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/shared"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// Handler processes one published event. Handler errors are logged and never
// propagate to the publisher: domain state transitions do not depend on
// delivery.
type Handler func(event shared.Event) error

// InMemoryEventBus is a simple in-memory event bus. Suitable for
// single-instance deployments and testing.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]Handler
	allHandlers []Handler
	asyncMode   bool
	workerPool  chan struct{}
	log         *logger.Logger
	metrics     *BusMetrics
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// Config contains configuration for InMemoryEventBus.
type Config struct {
	// AsyncMode enables asynchronous event processing.
	AsyncMode bool

	// WorkerPoolSize is the number of concurrent workers for async processing.
	WorkerPoolSize int

	// Logger for structured logging.
	Logger *logger.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AsyncMode:      true,
		WorkerPoolSize: 10,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config Config) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	return &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]Handler),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		log:        config.Logger.With(logger.Component("eventbus")),
		metrics:    NewBusMetrics(),
		closeCh:    make(chan struct{}),
	}
}

var _ shared.EventPublisher = (*InMemoryEventBus)(nil)

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish sends an event to all subscribed handlers.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]Handler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	b.metrics.RecordPublish(event.EventType())

	if len(handlers) == 0 {
		return nil
	}

	if b.asyncMode {
		for _, handler := range handlers {
			b.executeAsync(event, handler)
		}
		return nil
	}

	for _, handler := range handlers {
		if err := b.execute(event, handler); err != nil {
			b.log.Error("event handler failed",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
		}
	}
	return nil
}

// executeAsync executes a handler on the worker pool.
func (b *InMemoryEventBus) executeAsync(event shared.Event, handler Handler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		if err := b.execute(event, handler); err != nil {
			b.log.Error("async event handler failed",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
		}
	}()
}

func (b *InMemoryEventBus) execute(event shared.Event, handler Handler) error {
	start := time.Now()
	err := handler(event)
	b.metrics.RecordHandlerExecution(event.EventType(), time.Since(start), err == nil)
	return err
}

// Close waits for pending handlers and shuts the bus down.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// Metrics returns the bus metrics tracker.
func (b *InMemoryEventBus) Metrics() *BusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// BusMetrics tracks event bus throughput and handler outcomes.
type BusMetrics struct {
	mu sync.RWMutex

	publishedByType   map[shared.EventType]int64
	handlerExecutions int64
	handlerSuccesses  int64
	handlerFailures   int64
	handlerDuration   time.Duration
}

// NewBusMetrics creates a new metrics tracker.
func NewBusMetrics() *BusMetrics {
	return &BusMetrics{
		publishedByType: make(map[shared.EventType]int64),
	}
}

// RecordPublish records a published event.
func (m *BusMetrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedByType[eventType]++
}

// RecordHandlerExecution records one handler execution.
func (m *BusMetrics) RecordHandlerExecution(eventType shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlerExecutions++
	m.handlerDuration += duration
	if success {
		m.handlerSuccesses++
	} else {
		m.handlerFailures++
	}
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *BusMetrics) Snapshot() BusMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var published int64
	for _, n := range m.publishedByType {
		published += n
	}

	avg := time.Duration(0)
	rate := 1.0
	if m.handlerExecutions > 0 {
		avg = m.handlerDuration / time.Duration(m.handlerExecutions)
		rate = float64(m.handlerSuccesses) / float64(m.handlerExecutions)
	}

	return BusMetricsSnapshot{
		TotalPublished:         published,
		TotalHandlerExecs:      m.handlerExecutions,
		HandlerSuccessRate:     rate,
		AverageHandlerDuration: avg,
	}
}

// BusMetricsSnapshot is a point-in-time snapshot of bus metrics.
type BusMetricsSnapshot struct {
	TotalPublished         int64
	TotalHandlerExecs      int64
	HandlerSuccessRate     float64
	AverageHandlerDuration time.Duration
}
