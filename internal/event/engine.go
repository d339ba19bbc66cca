package event

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"main/internal/obs"
	"main/pkg/exception"
)

const (
	// DefaultTimerInterval is the period of the reserved timer event.
	DefaultTimerInterval = time.Second

	defaultQueueSize = 4096
)

const (
	stateNew uint32 = iota
	stateStarted
	stateStopped
)

// Config controls engine construction.
type Config struct {
	// QueueSize bounds the pending-event queue. Defaults to 4096.
	QueueSize int
	// TimerInterval is the reserved timer event period. Defaults to 1s.
	TimerInterval time.Duration
	// Metrics receives queue/dispatch counters when set.
	Metrics *obs.Metrics
}

type queued struct {
	ev Event
	at time.Time
}

type registration struct {
	key     uintptr
	handler Handler
}

// Engine is the asynchronous publish/subscribe dispatcher at the center of
// the runtime. One background goroutine drains a FIFO queue and invokes all
// registered handlers for each event in publish order, giving every
// subscriber the same total order. A second goroutine publishes the reserved
// timer event at a fixed interval.
type Engine struct {
	queue    chan queued
	interval time.Duration
	metrics  *obs.Metrics

	mu       sync.RWMutex
	handlers map[string][]registration
	general  []registration

	state    uint32
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an engine. It accepts events immediately but delivers nothing
// until Start.
func New(cfg Config) *Engine {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	interval := cfg.TimerInterval
	if interval <= 0 {
		interval = DefaultTimerInterval
	}
	return &Engine{
		queue:    make(chan queued, size),
		interval: interval,
		metrics:  cfg.Metrics,
		handlers: make(map[string][]registration),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the dispatch worker and the timer. Calling Start twice is
// a no-op.
func (e *Engine) Start() {
	if !atomic.CompareAndSwapUint32(&e.state, stateNew, stateStarted) {
		return
	}
	e.wg.Add(2)
	go e.runDispatch()
	go e.runTimer()
}

// Publish enqueues an event for asynchronous delivery and returns
// immediately. It never blocks the producer: a full queue drops the event,
// and publishing after Stop is silently ignored since producers may be in
// the middle of their own shutdown.
func (e *Engine) Publish(ev Event) {
	if atomic.LoadUint32(&e.state) == stateStopped {
		e.metrics.IncQueueClosed()
		return
	}
	select {
	case e.queue <- queued{ev: ev, at: time.Now()}:
	default:
		e.metrics.IncQueueDrop()
	}
}

// Subscribe registers a handler for every future event of exactly this type.
// Handlers run in registration order. Re-subscribing a handler already
// registered for the type is a no-op, so subsequent events are never
// delivered twice.
func (e *Engine) Subscribe(eventType string, handler Handler) error {
	if eventType == "" {
		return exception.ErrEventEmptyType
	}
	if handler == nil {
		return exception.ErrEventNilHandler
	}
	key := handlerKey(handler)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, reg := range e.handlers[eventType] {
		if reg.key == key {
			return nil
		}
	}
	e.handlers[eventType] = append(e.handlers[eventType], registration{key: key, handler: handler})
	return nil
}

// Unsubscribe removes a handler from one event type.
func (e *Engine) Unsubscribe(eventType string, handler Handler) error {
	if eventType == "" {
		return exception.ErrEventEmptyType
	}
	if handler == nil {
		return exception.ErrEventNilHandler
	}
	key := handlerKey(handler)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[eventType] = removeRegistration(e.handlers[eventType], key)
	return nil
}

// SubscribeAll registers a wildcard handler receiving every event regardless
// of type, after the type-specific handlers.
func (e *Engine) SubscribeAll(handler Handler) error {
	if handler == nil {
		return exception.ErrEventNilHandler
	}
	key := handlerKey(handler)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, reg := range e.general {
		if reg.key == key {
			return nil
		}
	}
	e.general = append(e.general, registration{key: key, handler: handler})
	return nil
}

// UnsubscribeAll removes a wildcard handler.
func (e *Engine) UnsubscribeAll(handler Handler) error {
	if handler == nil {
		return exception.ErrEventNilHandler
	}
	key := handlerKey(handler)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.general = removeRegistration(e.general, key)
	return nil
}

// Stop halts the timer, drains every event already queued, and stops the
// dispatch worker. No handler runs after Stop returns. Stop is idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		started := atomic.SwapUint32(&e.state, stateStopped) == stateStarted
		close(e.stopCh)
		if started {
			e.wg.Wait()
		}
	})
}

// TimerInterval returns the reserved timer event period.
func (e *Engine) TimerInterval() time.Duration {
	return e.interval
}

func (e *Engine) runDispatch() {
	defer e.wg.Done()
	for {
		select {
		case q := <-e.queue:
			e.process(q)
		case <-e.stopCh:
			// Drain whatever was accepted before the state flipped.
			for {
				select {
				case q := <-e.queue:
					e.process(q)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) runTimer() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case now := <-ticker.C:
			e.Publish(Event{Type: TypeTimer, Data: now})
		}
	}
}

func (e *Engine) process(q queued) {
	e.mu.RLock()
	regs := make([]registration, 0, len(e.handlers[q.ev.Type])+len(e.general))
	regs = append(regs, e.handlers[q.ev.Type]...)
	regs = append(regs, e.general...)
	e.mu.RUnlock()

	for _, reg := range regs {
		reg.handler(q.ev)
	}
	e.metrics.ObserveEvent(q.ev.Type, q.at)
}

func handlerKey(handler Handler) uintptr {
	return reflect.ValueOf(handler).Pointer()
}

func removeRegistration(regs []registration, key uintptr) []registration {
	for i, reg := range regs {
		if reg.key == key {
			return append(regs[:i:i], regs[i+1:]...)
		}
	}
	return regs
}
