package oms

import (
	"github.com/shopspring/decimal"

	"main/internal/model"
)

// weightedAverage recomputes an average open price after adding a fill on
// the same side. Decimal arithmetic keeps repeated netting exact.
func weightedAverage(avg, volume, fillPrice, fillVolume float64) float64 {
	total := volume + fillVolume
	if total <= 0 {
		return 0
	}
	held := decimal.NewFromFloat(avg).Mul(decimal.NewFromFloat(volume))
	added := decimal.NewFromFloat(fillPrice).Mul(decimal.NewFromFloat(fillVolume))
	return held.Add(added).Div(decimal.NewFromFloat(total)).InexactFloat64()
}

// GetTick returns the last tick stored for an instrument key.
func (e *Engine) GetTick(instrumentKey string) (model.Tick, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tick, ok := e.ticks[instrumentKey]
	return tick, ok
}

// GetOrder returns an order by its globally unique key (gateway.orderID).
func (e *Engine) GetOrder(orderKey string) (model.Order, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	order, ok := e.orders[orderKey]
	return order, ok
}

// GetTrade returns a trade by its globally unique key (gateway.tradeID).
func (e *Engine) GetTrade(tradeKey string) (model.Trade, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	trade, ok := e.trades[tradeKey]
	return trade, ok
}

// GetPosition returns a position by instrument key plus direction suffix.
func (e *Engine) GetPosition(positionKey string) (model.Position, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pos, ok := e.positions[positionKey]
	return pos, ok
}

// GetAccount returns an account by its key (gateway.accountID).
func (e *Engine) GetAccount(accountKey string) (model.Account, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	account, ok := e.accounts[accountKey]
	return account, ok
}

// GetContract returns static metadata for an instrument key.
func (e *Engine) GetContract(instrumentKey string) (model.Contract, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	contract, ok := e.contracts[instrumentKey]
	return contract, ok
}

// GetAllTicks copies every stored tick.
func (e *Engine) GetAllTicks() []model.Tick {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Tick, 0, len(e.ticks))
	for _, tick := range e.ticks {
		out = append(out, tick)
	}
	return out
}

// GetAllOrders copies every order retained for the run's lifetime.
func (e *Engine) GetAllOrders() []model.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Order, 0, len(e.orders))
	for _, order := range e.orders {
		out = append(out, order)
	}
	return out
}

// GetAllTrades copies the trade history.
func (e *Engine) GetAllTrades() []model.Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Trade, 0, len(e.trades))
	for _, trade := range e.trades {
		out = append(out, trade)
	}
	return out
}

// GetAllPositions copies every position.
func (e *Engine) GetAllPositions() []model.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Position, 0, len(e.positions))
	for _, pos := range e.positions {
		out = append(out, pos)
	}
	return out
}

// GetAllAccounts copies every account.
func (e *Engine) GetAllAccounts() []model.Account {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Account, 0, len(e.accounts))
	for _, account := range e.accounts {
		out = append(out, account)
	}
	return out
}

// GetAllContracts copies every contract.
func (e *Engine) GetAllContracts() []model.Contract {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Contract, 0, len(e.contracts))
	for _, contract := range e.contracts {
		out = append(out, contract)
	}
	return out
}

// GetAllActiveOrders copies orders whose status is not terminal, optionally
// filtered by instrument key.
func (e *Engine) GetAllActiveOrders(instrumentKey string) []model.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Order, 0, len(e.activeOrders))
	for _, order := range e.activeOrders {
		if instrumentKey != "" && order.InstrumentKey() != instrumentKey {
			continue
		}
		out = append(out, order)
	}
	return out
}
