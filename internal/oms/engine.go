/*
Package oms keeps the authoritative in-memory trading state.

The engine subscribes to every domain event type and mutates its maps only
on the bus dispatch goroutine, relying on the bus's total ordering for
correct position netting. A read-write lock makes the query surface safe for
arbitrary caller threads; a query never observes a partially applied event
because each event is applied under one write-lock section.
*/
package oms

import (
	"fmt"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/event"
	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// EngineName is the registry name of the state repository.
const EngineName = "oms"

// Config controls repository policies.
type Config struct {
	// StrictTrades skips fills whose parent order was never seen instead
	// of applying them against the trade's own instrument.
	StrictTrades bool
}

// Engine is the state repository. Construct with New and register it on the
// main engine; it wires its own subscriptions.
type Engine struct {
	bus *event.Engine
	cfg Config

	mu           sync.RWMutex
	ticks        map[string]model.Tick
	orders       map[string]model.Order
	trades       map[string]model.Trade
	positions    map[string]model.Position
	derived      map[string]bool
	netBySymbol  map[string]string
	accounts     map[string]model.Account
	contracts    map[string]model.Contract
	activeOrders map[string]model.Order
}

// New creates the repository and subscribes it to the bus.
func New(bus *event.Engine, cfg Config) *Engine {
	e := &Engine{
		bus:          bus,
		cfg:          cfg,
		ticks:        make(map[string]model.Tick),
		orders:       make(map[string]model.Order),
		trades:       make(map[string]model.Trade),
		positions:    make(map[string]model.Position),
		derived:      make(map[string]bool),
		netBySymbol:  make(map[string]string),
		accounts:     make(map[string]model.Account),
		contracts:    make(map[string]model.Contract),
		activeOrders: make(map[string]model.Order),
	}
	bus.Subscribe(event.TypeTick, e.processTick)
	bus.Subscribe(event.TypeOrder, e.processOrder)
	bus.Subscribe(event.TypeTrade, e.processTrade)
	bus.Subscribe(event.TypePosition, e.processPosition)
	bus.Subscribe(event.TypeAccount, e.processAccount)
	bus.Subscribe(event.TypeContract, e.processContract)
	return e
}

func (e *Engine) Name() string {
	return EngineName
}

// Close is part of the engine contract. The repository has no background
// work of its own; retained state stays queryable until the process exits.
func (e *Engine) Close() error {
	return nil
}

func (e *Engine) processTick(ev event.Event) {
	tick, ok := ev.Data.(model.Tick)
	if !ok {
		return
	}
	e.mu.Lock()
	// Last write wins: a tick supersedes the previous one entirely.
	e.ticks[tick.Key()] = tick
	e.mu.Unlock()
}

func (e *Engine) processOrder(ev event.Event) {
	order, ok := ev.Data.(model.Order)
	if !ok {
		return
	}
	key := order.Key()
	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.orders[key]; ok && !existing.IsActive() {
		// Terminal orders accept no further transitions.
		logs.Infof("oms: dropped transition for terminal order %s (%s -> %s)",
			key, existing.Status, order.Status)
		return
	}
	e.orders[key] = order
	if order.IsActive() {
		e.activeOrders[key] = order
	} else {
		delete(e.activeOrders, key)
	}
}

func (e *Engine) processTrade(ev event.Event) {
	trade, ok := ev.Data.(model.Trade)
	if !ok {
		return
	}
	if trade.Volume <= 0 {
		logs.Errorf("oms: ignored trade %s: %v", trade.Key(), exception.ErrOMSInvalidTradeSize)
		return
	}
	key := trade.Key()
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.trades[key]; ok {
		logs.Infof("oms: ignored duplicate trade %s", key)
		return
	}
	e.trades[key] = trade

	if _, ok := e.orders[trade.OrderKey()]; !ok {
		// Losing the fill is worse than losing traceability to the parent
		// order, so the default policy records it against the trade's own
		// instrument key and logs the anomaly.
		e.writeLog(enum.LogLevelWarning, fmt.Sprintf(
			"trade %s references unknown order %s", key, trade.OrderKey()))
		if e.cfg.StrictTrades {
			return
		}
	}
	e.applyFill(trade)
}

// applyFill nets a fill into the instrument's position. Must run with the
// write lock held so the trade and its position change land atomically.
func (e *Engine) applyFill(trade model.Trade) {
	instrument := trade.InstrumentKey()
	var pos model.Position
	if key, ok := e.netBySymbol[instrument]; ok {
		pos = e.positions[key]
	} else {
		pos = model.Position{
			GatewayName: trade.GatewayName,
			Symbol:      trade.Symbol,
			Exchange:    trade.Exchange,
			Direction:   trade.Direction,
		}
	}

	signed := trade.Volume
	if trade.Direction == enum.DirectionShort {
		signed = -signed
	}
	current := pos.Volume
	if pos.Direction == enum.DirectionShort {
		current = -current
	}
	next := current + signed

	sameSide := current == 0 || (current > 0) == (signed > 0)
	switch {
	case sameSide:
		pos.AvgPrice = weightedAverage(pos.AvgPrice, pos.Volume, trade.Price, trade.Volume)
	case (next > 0) != (current > 0) && next != 0:
		// Netted through zero: the remainder opens at the fill price.
		pos.AvgPrice = trade.Price
	case next == 0:
		pos.AvgPrice = 0
	}

	oldKey := pos.Key()
	if next >= 0 {
		pos.Direction = enum.DirectionLong
		pos.Volume = next
	} else {
		pos.Direction = enum.DirectionShort
		pos.Volume = -next
	}

	newKey := pos.Key()
	if oldKey != newKey {
		delete(e.positions, oldKey)
	}
	e.positions[newKey] = pos
	e.derived[newKey] = true
	e.netBySymbol[instrument] = newKey
}

func (e *Engine) processPosition(ev event.Event) {
	pos, ok := ev.Data.(model.Position)
	if !ok {
		return
	}
	key := pos.Key()
	e.mu.Lock()
	defer e.mu.Unlock()
	// A trade-derived position is authoritative over broker pushes.
	if e.derived[key] {
		return
	}
	e.positions[key] = pos
}

func (e *Engine) processAccount(ev event.Event) {
	account, ok := ev.Data.(model.Account)
	if !ok {
		return
	}
	e.mu.Lock()
	e.accounts[account.Key()] = account
	e.mu.Unlock()
}

func (e *Engine) processContract(ev event.Event) {
	contract, ok := ev.Data.(model.Contract)
	if !ok {
		return
	}
	e.mu.Lock()
	e.contracts[contract.Key()] = contract
	e.mu.Unlock()
}

func (e *Engine) writeLog(level enum.LogLevel, msg string) {
	logs.Infof("oms: %s", msg)
	e.bus.Publish(event.Event{Type: event.TypeLog, Data: model.LogEntry{
		GatewayName: EngineName,
		Msg:         msg,
		Level:       level,
		TsNano:      time.Now().UTC().UnixNano(),
	}})
}
