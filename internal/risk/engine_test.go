package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/event"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/oms"
	"main/pkg/exception"
)

func request(direction enum.Direction, volume, price float64) model.OrderRequest {
	return model.OrderRequest{
		Symbol:    "AAPL",
		Exchange:  "NASDAQ",
		Direction: direction,
		Offset:    enum.OffsetOpen,
		Type:      enum.OrderTypeLimit,
		Price:     price,
		Volume:    volume,
	}
}

func TestKillSwitchRejectsEverything(t *testing.T) {
	e := New(Config{KillSwitch: true}, nil, nil)

	err := e.Check(request(enum.DirectionLong, 1, 1))
	assert.ErrorIs(t, err, exception.ErrRiskRejected)
}

func TestVolumeAndNotionalLimits(t *testing.T) {
	metrics := obs.NewMetrics()
	e := New(Config{MaxOrderVolume: 100, MaxOrderNotional: 10_000}, nil, metrics)

	assert.NoError(t, e.Check(request(enum.DirectionLong, 100, 100)))
	assert.ErrorIs(t, e.Check(request(enum.DirectionLong, 101, 1)), exception.ErrRiskRejected)
	assert.ErrorIs(t, e.Check(request(enum.DirectionLong, 100, 101)), exception.ErrRiskRejected)
	assert.Equal(t, uint64(2), metrics.Snapshot().RiskRejects)
}

func TestZeroLimitsDisableChecks(t *testing.T) {
	e := New(Config{}, nil, nil)
	assert.NoError(t, e.Check(request(enum.DirectionLong, 1e9, 1e9)))
}

func TestPositionLimitUsesRepository(t *testing.T) {
	bus := event.New(event.Config{TimerInterval: time.Hour})
	repo := oms.New(bus, oms.Config{})
	bus.Start()

	bus.Publish(event.Event{Type: event.TypeOrder, Data: model.Order{
		GatewayName: "SIM", OrderID: "O1", Symbol: "AAPL", Exchange: "NASDAQ",
		Direction: enum.DirectionLong, Offset: enum.OffsetOpen,
		Type: enum.OrderTypeLimit, Price: 100, Volume: 90,
		Status: enum.StatusNotTraded,
	}})
	bus.Publish(event.Event{Type: event.TypeTrade, Data: model.Trade{
		GatewayName: "SIM", TradeID: "T1", OrderID: "O1",
		Symbol: "AAPL", Exchange: "NASDAQ",
		Direction: enum.DirectionLong, Offset: enum.OffsetOpen,
		Price: 100, Volume: 90,
	}})
	bus.Stop()
	require.Len(t, repo.GetAllPositions(), 1)

	e := New(Config{MaxPosition: 100}, repo, nil)
	assert.NoError(t, e.Check(request(enum.DirectionLong, 10, 100)))
	assert.ErrorIs(t, e.Check(request(enum.DirectionLong, 11, 100)), exception.ErrRiskRejected)
	// Selling reduces the projected net position.
	assert.NoError(t, e.Check(request(enum.DirectionShort, 50, 100)))
}
