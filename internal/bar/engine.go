// Package bar aggregates the tick stream into fixed-interval OHLCV bars
// and republishes each completed bar on the bus.
package bar

import (
	"sync"
	"time"

	"main/internal/event"
	"main/internal/model"
	"main/internal/model/enum"
)

// EngineName is the registry name on the orchestrator.
const EngineName = "bar"

// Config tunes the aggregator.
type Config struct {
	// Interval defaults to one minute.
	Interval enum.BarInterval
}

// Engine builds one open bar per instrument from incoming ticks. A bar is
// published the moment the first tick of the next interval arrives, and any
// still-open bars are flushed on Close.
type Engine struct {
	bus      *event.Engine
	interval enum.BarInterval

	mu      sync.Mutex
	working map[string]*model.Bar
	lastTs  map[string]int64
}

// New creates the aggregator and subscribes it to tick events.
func New(bus *event.Engine, cfg Config) *Engine {
	interval := cfg.Interval
	if !interval.IsAvailable() {
		interval = enum.BarIntervalMinute
	}
	e := &Engine{
		bus:      bus,
		interval: interval,
		working:  make(map[string]*model.Bar),
		lastTs:   make(map[string]int64),
	}
	bus.Subscribe(event.TypeTick, e.processTick)
	return e
}

func (e *Engine) Name() string {
	return EngineName
}

// Close flushes every open bar.
func (e *Engine) Close() error {
	e.bus.Unsubscribe(event.TypeTick, e.processTick)

	e.mu.Lock()
	defer e.mu.Unlock()
	for key, working := range e.working {
		e.bus.Publish(event.Event{Type: event.TypeBar, Data: *working})
		delete(e.working, key)
	}
	return nil
}

func (e *Engine) processTick(ev event.Event) {
	tick, ok := ev.Data.(model.Tick)
	if !ok || tick.LastPrice <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := tick.Key()
	// Depth-only republications carry the previous trade timestamp; count
	// the traded volume once.
	fresh := tick.TsNano != e.lastTs[key]
	e.lastTs[key] = tick.TsNano

	bucket := time.Unix(0, tick.TsNano).UTC().Truncate(e.interval.Duration()).UnixNano()
	working, open := e.working[key]
	if open && working.TsNano != bucket {
		e.bus.Publish(event.Event{Type: event.TypeBar, Data: *working})
		open = false
	}
	if !open {
		working = &model.Bar{
			GatewayName: tick.GatewayName,
			Symbol:      tick.Symbol,
			Exchange:    tick.Exchange,
			TsNano:      bucket,
			Interval:    e.interval,
			Open:        tick.LastPrice,
			High:        tick.LastPrice,
			Low:         tick.LastPrice,
		}
		e.working[key] = working
	}

	if tick.LastPrice > working.High {
		working.High = tick.LastPrice
	}
	if tick.LastPrice < working.Low {
		working.Low = tick.LastPrice
	}
	working.Close = tick.LastPrice
	if fresh {
		working.Volume += tick.LastVolume
	}
}
