package authflow

import (
	"context"
	"sync"
	"time"
)

// EventKind enumerates lifecycle notifications.
type EventKind string

const (
	EventSignIn      EventKind = "auth.sign_in"
	EventSignOut     EventKind = "auth.sign_out"
	EventCreateUser  EventKind = "auth.user.created"
	EventLinkAccount EventKind = "auth.account.linked"
)

// Event is an immutable lifecycle notification payload.
type Event struct {
	Kind       EventKind
	User       *User
	Account    *Account
	IsNewUser  bool
	OccurredAt time.Time
	Metadata   map[string]any
}

// Type returns the message type for routing.
func (e Event) Type() string { return string(e.Kind) }

// EventListener consumes lifecycle events. Listener failures are logged and
// swallowed; they never reach the flow that emitted the event.
type EventListener interface {
	Handle(ctx context.Context, event Event) error
}

// EventListenerFunc adapts a function to the EventListener interface.
type EventListenerFunc func(ctx context.Context, event Event) error

// Handle implements EventListener.
func (f EventListenerFunc) Handle(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// Dispatcher delivers lifecycle events to listeners on its own goroutine.
// Dispatch never blocks the caller and never propagates listener failures.
type Dispatcher struct {
	listeners []EventListener
	queue     chan Event
	logger    Logger
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
}

const dispatcherQueueSize = 64

// NewDispatcher creates a dispatcher and starts its delivery goroutine.
func NewDispatcher(logger Logger, listeners ...EventListener) *Dispatcher {
	if logger == nil {
		logger = defLogger{}
	}
	d := &Dispatcher{
		listeners: listeners,
		queue:     make(chan Event, dispatcherQueueSize),
		logger:    logger,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Dispatch enqueues an event without blocking. Events are dropped, with a
// log line, when the queue is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("dispatcher closed, dropping event %s", event.Kind)
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("event queue full, dropping event %s", event.Kind)
	}
}

// Close stops intake and drains pending events before returning.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	ctx := context.Background()
	for _, listener := range d.listeners {
		d.deliverOne(ctx, listener, event)
	}
}

func (d *Dispatcher) deliverOne(ctx context.Context, listener EventListener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event listener panicked on %s: %v", event.Kind, r)
		}
	}()

	if err := listener.Handle(ctx, event); err != nil {
		d.logger.Warn("event listener error on %s: %v", event.Kind, err)
	}
}
