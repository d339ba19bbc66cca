package oms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/event"
	"main/internal/model"
	"main/internal/model/enum"
)

func newRuntime(t *testing.T, cfg Config) (*event.Engine, *Engine) {
	t.Helper()
	bus := event.New(event.Config{TimerInterval: time.Hour})
	repo := New(bus, cfg)
	bus.Start()
	return bus, repo
}

func tick(symbol, exchange string, price float64) model.Tick {
	return model.Tick{
		GatewayName: "SIM",
		Symbol:      symbol,
		Exchange:    exchange,
		LastPrice:   price,
		TsNano:      time.Now().UTC().UnixNano(),
	}
}

func order(id string, direction enum.Direction, volume, price float64, status enum.Status) model.Order {
	return model.Order{
		GatewayName: "SIM",
		OrderID:     id,
		Symbol:      "AAPL",
		Exchange:    "NASDAQ",
		Direction:   direction,
		Offset:      enum.OffsetOpen,
		Type:        enum.OrderTypeLimit,
		Price:       price,
		Volume:      volume,
		Status:      status,
	}
}

func fill(tradeID, orderID string, direction enum.Direction, volume, price float64) model.Trade {
	return model.Trade{
		GatewayName: "SIM",
		TradeID:     tradeID,
		OrderID:     orderID,
		Symbol:      "AAPL",
		Exchange:    "NASDAQ",
		Direction:   direction,
		Offset:      enum.OffsetOpen,
		Price:       price,
		Volume:      volume,
	}
}

func TestTickLastWriteWins(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	bus.Publish(event.Event{Type: event.TypeTick, Data: tick("AAPL", "NASDAQ", 100)})
	bus.Publish(event.Event{Type: event.TypeTick, Data: tick("AAPL", "NASDAQ", 101)})
	bus.Stop()

	stored, ok := repo.GetTick("AAPL.NASDAQ")
	require.True(t, ok)
	assert.Equal(t, 101.0, stored.LastPrice)
	assert.Len(t, repo.GetAllTicks(), 1)
}

func TestTerminalOrderLeavesActiveSetForGood(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O1", enum.DirectionLong, 10, 100, enum.StatusSubmitting)})
	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O1", enum.DirectionLong, 10, 100, enum.StatusNotTraded)})
	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O1", enum.DirectionLong, 10, 100, enum.StatusCancelled)})
	// A transition after a terminal status must not be accepted.
	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O1", enum.DirectionLong, 10, 100, enum.StatusAllTraded)})
	bus.Stop()

	stored, ok := repo.GetOrder("SIM.O1")
	require.True(t, ok)
	assert.Equal(t, enum.StatusCancelled, stored.Status)
	assert.Empty(t, repo.GetAllActiveOrders(""))
}

func TestActiveOrdersFilterByInstrument(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	other := order("O2", enum.DirectionLong, 5, 50, enum.StatusNotTraded)
	other.Symbol = "MSFT"
	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O1", enum.DirectionLong, 10, 100, enum.StatusNotTraded)})
	bus.Publish(event.Event{Type: event.TypeOrder, Data: other})
	bus.Stop()

	assert.Len(t, repo.GetAllActiveOrders(""), 2)
	assert.Len(t, repo.GetAllActiveOrders("AAPL.NASDAQ"), 1)
	assert.Len(t, repo.GetAllActiveOrders("MSFT.NASDAQ"), 1)
}

func TestPositionWeightedAverage(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O1", enum.DirectionLong, 10, 100, enum.StatusNotTraded)})
	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T1", "O1", enum.DirectionLong, 10, 100)})
	bus.Stop()

	pos, ok := repo.GetPosition("AAPL.NASDAQ.long")
	require.True(t, ok)
	assert.Equal(t, 10.0, pos.Volume)
	assert.Equal(t, 100.0, pos.AvgPrice)
}

func TestPositionScenarioTwoFills(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	bus.Publish(event.Event{Type: event.TypeTick, Data: tick("AAPL", "NASDAQ", 100)})
	bus.Publish(event.Event{Type: event.TypeTick, Data: tick("AAPL", "NASDAQ", 101)})
	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O1", enum.DirectionLong, 10, 100, enum.StatusNotTraded)})
	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T1", "O1", enum.DirectionLong, 10, 100)})
	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O2", enum.DirectionLong, 5, 102, enum.StatusNotTraded)})
	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T2", "O2", enum.DirectionLong, 5, 102)})
	bus.Stop()

	stored, ok := repo.GetTick("AAPL.NASDAQ")
	require.True(t, ok)
	assert.Equal(t, 101.0, stored.LastPrice)

	pos, ok := repo.GetPosition("AAPL.NASDAQ.long")
	require.True(t, ok)
	assert.Equal(t, 15.0, pos.Volume)
	assert.InDelta(t, (10*100.0+5*102.0)/15.0, pos.AvgPrice, 0.01)
}

func TestPositionNettingAndFlip(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O1", enum.DirectionLong, 10, 100, enum.StatusNotTraded)})
	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T1", "O1", enum.DirectionLong, 10, 100)})
	// Sell 4: nets the long down, average unchanged.
	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O2", enum.DirectionShort, 4, 110, enum.StatusNotTraded)})
	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T2", "O2", enum.DirectionShort, 4, 110)})
	// Sell 10 more: flips through zero into a short of 4 at the fill price.
	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O3", enum.DirectionShort, 10, 105, enum.StatusNotTraded)})
	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T3", "O3", enum.DirectionShort, 10, 105)})
	bus.Stop()

	_, stillLong := repo.GetPosition("AAPL.NASDAQ.long")
	assert.False(t, stillLong)

	pos, ok := repo.GetPosition("AAPL.NASDAQ.short")
	require.True(t, ok)
	assert.Equal(t, 4.0, pos.Volume)
	assert.Equal(t, 105.0, pos.AvgPrice)
}

func TestOrphanTradeRecordedByDefault(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T1", "NEVER-SEEN", enum.DirectionLong, 7, 99)})
	bus.Stop()

	pos, ok := repo.GetPosition("AAPL.NASDAQ.long")
	require.True(t, ok)
	assert.Equal(t, 7.0, pos.Volume)
	_, stored := repo.GetTrade("SIM.T1")
	assert.True(t, stored)
}

func TestOrphanTradeSkippedInStrictMode(t *testing.T) {
	bus, repo := newRuntime(t, Config{StrictTrades: true})

	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T1", "NEVER-SEEN", enum.DirectionLong, 7, 99)})
	bus.Stop()

	_, ok := repo.GetPosition("AAPL.NASDAQ.long")
	assert.False(t, ok)
	// History keeps the fill either way.
	_, stored := repo.GetTrade("SIM.T1")
	assert.True(t, stored)
}

func TestDuplicateTradeAppliedOnce(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O1", enum.DirectionLong, 10, 100, enum.StatusNotTraded)})
	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T1", "O1", enum.DirectionLong, 10, 100)})
	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T1", "O1", enum.DirectionLong, 10, 100)})
	bus.Stop()

	pos, ok := repo.GetPosition("AAPL.NASDAQ.long")
	require.True(t, ok)
	assert.Equal(t, 10.0, pos.Volume)
}

func TestAccountReplacedPerGateway(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	bus.Publish(event.Event{Type: event.TypeAccount, Data: model.Account{
		GatewayName: "SIM", AccountID: "A1", Balance: 1000, Frozen: 100,
	}})
	bus.Publish(event.Event{Type: event.TypeAccount, Data: model.Account{
		GatewayName: "SIM", AccountID: "A1", Balance: 900, Frozen: 0,
	}})
	bus.Stop()

	account, ok := repo.GetAccount("SIM.A1")
	require.True(t, ok)
	assert.Equal(t, 900.0, account.Balance)
	assert.Equal(t, 900.0, account.Available())
}

func TestPushedPositionYieldsToDerived(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	bus.Publish(event.Event{Type: event.TypeOrder, Data: order("O1", enum.DirectionLong, 10, 100, enum.StatusNotTraded)})
	bus.Publish(event.Event{Type: event.TypeTrade, Data: fill("T1", "O1", enum.DirectionLong, 10, 100)})
	bus.Publish(event.Event{Type: event.TypePosition, Data: model.Position{
		GatewayName: "SIM", Symbol: "AAPL", Exchange: "NASDAQ",
		Direction: enum.DirectionLong, Volume: 999, AvgPrice: 1,
	}})
	bus.Stop()

	pos, ok := repo.GetPosition("AAPL.NASDAQ.long")
	require.True(t, ok)
	assert.Equal(t, 10.0, pos.Volume)
}

func TestContractStoredOnce(t *testing.T) {
	bus, repo := newRuntime(t, Config{})

	bus.Publish(event.Event{Type: event.TypeContract, Data: model.Contract{
		GatewayName: "SIM", Symbol: "AAPL", Exchange: "NASDAQ",
		Name: "Apple Inc.", Product: enum.ProductEquity, Size: 1, PriceTick: 0.01,
	}})
	bus.Stop()

	contract, ok := repo.GetContract("AAPL.NASDAQ")
	require.True(t, ok)
	assert.Equal(t, "Apple Inc.", contract.Name)
	assert.Len(t, repo.GetAllContracts(), 1)
}
