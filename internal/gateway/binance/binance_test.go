package binance

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/event"
	"main/internal/model"
	"main/pkg/exception"
)

func newBus(t *testing.T) *event.Engine {
	t.Helper()
	bus := event.New(event.Config{TimerInterval: time.Hour})
	bus.Start()
	t.Cleanup(func() { bus.Stop() })
	return bus
}

func TestOrderEntryUnsupported(t *testing.T) {
	g := New("", newBus(t))

	_, err := g.SendOrder(model.OrderRequest{})
	assert.ErrorIs(t, err, exception.ErrGatewayOrderUnsupported)
	assert.ErrorIs(t, g.CancelOrder(model.CancelRequest{OrderID: "1"}), exception.ErrGatewayOrderUnsupported)
	assert.ErrorIs(t, g.QueryAccount(), exception.ErrGatewayOrderUnsupported)
	assert.ErrorIs(t, g.QueryPosition(), exception.ErrGatewayOrderUnsupported)
}

func TestSubscribeRequiresConnect(t *testing.T) {
	g := New("", newBus(t))

	err := g.Subscribe(model.SubscribeRequest{Symbol: "BTCUSDT", Exchange: ExchangeName})
	assert.ErrorIs(t, err, exception.ErrGatewayNotConnected)
}

func TestStreamAssemblesTickFromPayloads(t *testing.T) {
	bus := newBus(t)
	var mu sync.Mutex
	var ticks []model.Tick
	bus.Subscribe(event.TypeTick, func(ev event.Event) {
		mu.Lock()
		defer mu.Unlock()
		ticks = append(ticks, ev.Data.(model.Tick))
	})

	g := New("", bus)
	st := newStream(g, model.SubscribeRequest{Symbol: "BTCUSDT", Exchange: ExchangeName})

	st.applyDepth(depthPayload{
		LastUpdateID: 7,
		Bids:         [][2]string{{"100.5", "2"}, {"100.4", "3"}},
		Asks:         [][2]string{{"100.6", "1"}, {"bad", "1"}, {"100.7", "4"}},
	})
	st.applyTrade(tradePayload{
		EventType: "trade",
		Price:     "100.55",
		Quantity:  "0.25",
		TradeTime: 1_700_000_000_000,
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(ticks)
		mu.Unlock()
		if n >= 2 {
			break
		}
		require.True(t, time.Now().Before(deadline), "ticks not delivered")
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	depth := ticks[0]
	assert.Equal(t, GatewayName, depth.GatewayName)
	assert.Equal(t, 2, depth.BidsLength)
	assert.Equal(t, 2, depth.AsksLength) // malformed level skipped
	assert.Equal(t, 100.5, depth.Bids[0].Price)
	assert.Equal(t, 100.7, depth.Asks[1].Price)

	last := ticks[1]
	assert.Equal(t, 100.55, last.LastPrice)
	assert.Equal(t, 0.25, last.LastVolume)
	assert.Equal(t, int64(1_700_000_000_000)*int64(time.Millisecond), last.TsNano)
	assert.Equal(t, 2, last.BidsLength)
}

func TestMalformedTradeIgnored(t *testing.T) {
	bus := newBus(t)
	g := New("", bus)
	st := newStream(g, model.SubscribeRequest{Symbol: "BTCUSDT", Exchange: ExchangeName})

	st.applyTrade(tradePayload{EventType: "trade", Price: "oops", Quantity: "1"})

	st.tickMu.Lock()
	defer st.tickMu.Unlock()
	assert.Zero(t, st.tick.LastPrice)
}
