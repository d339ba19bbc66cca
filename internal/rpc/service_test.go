package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/engine"
	"main/internal/event"
	"main/internal/gateway/sim"
	"main/internal/oms"
)

func startRuntime(t *testing.T) (*engine.MainEngine, *Client) {
	t.Helper()
	bus := event.New(event.Config{TimerInterval: time.Hour})
	main := engine.New(bus, oms.Config{})
	require.NoError(t, main.AddGateway(sim.New("", bus)))
	t.Cleanup(func() { main.Close() })

	req, pub := addrPair(t)
	svc, err := NewService(main, ServerConfig{ReqAddress: req, PubAddress: pub})
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	cli := connectClient(t, ClientConfig{ReqAddress: req, SubAddress: pub})
	return main, cli
}

func TestServiceTradingFlow(t *testing.T) {
	main, cli := startRuntime(t)

	_, err := cli.Call("connect", nil, map[string]any{
		"gateway":  sim.GatewayName,
		"settings": map[string]any{"seed": "1", "basePrice": "100"},
	}, time.Second)
	require.NoError(t, err)

	_, err = cli.Call("subscribe", nil, map[string]any{
		"gateway":  sim.GatewayName,
		"symbol":   "AAPL",
		"exchange": "NASDAQ",
	}, time.Second)
	require.NoError(t, err)

	trades := make(chan Packet, 8)
	cli.SubscribeTopic(event.TypeTrade, func(pkt Packet) { trades <- pkt })

	// Marketable limit buy fills immediately in the simulator.
	value, err := cli.Call("send_order", nil, map[string]any{
		"gateway":   sim.GatewayName,
		"symbol":    "AAPL",
		"exchange":  "NASDAQ",
		"direction": 1, // long
		"type":      1, // limit
		"price":     150.0,
		"volume":    10.0,
	}, time.Second)
	require.NoError(t, err)
	orderID, ok := value.(string)
	require.True(t, ok)
	require.NotEmpty(t, orderID)

	select {
	case pkt := <-trades:
		assert.Equal(t, event.TypeTrade, pkt.Topic)
		data, ok := pkt.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, orderID, data["orderId"])
		assert.Equal(t, "AAPL", data["symbol"])
	case <-time.After(2 * time.Second):
		t.Fatal("trade broadcast never arrived")
	}

	// The repository converges on the fill; query over RPC agrees with the
	// in-process view.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if len(main.OMS().GetAllTrades()) > 0 {
			break
		}
		require.True(t, time.Now().Before(deadline), "repository never saw the trade")
		time.Sleep(time.Millisecond)
	}

	value, err = cli.Call("query_position", nil, nil, time.Second)
	require.NoError(t, err)
	positions, ok := value.([]any)
	require.True(t, ok)
	require.Len(t, positions, 1)
	pos, ok := positions[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 10.0, pos["volume"])
}

func TestServiceRejectsBadGateway(t *testing.T) {
	_, cli := startRuntime(t)

	_, err := cli.Call("send_order", nil, map[string]any{
		"gateway":   "NOPE",
		"symbol":    "AAPL",
		"exchange":  "NASDAQ",
		"direction": 1,
		"type":      2,
		"volume":    1.0,
	}, time.Second)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Message, "NOPE")
}

func TestServiceQueryTick(t *testing.T) {
	_, cli := startRuntime(t)

	_, err := cli.Call("query_tick", nil, map[string]any{"instrument": "GHOST.NOWHERE"}, time.Second)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)

	value, err := cli.Call("query_tick", nil, nil, time.Second)
	require.NoError(t, err)
	if value != nil {
		_, ok := value.([]any)
		assert.True(t, ok, "expected tick list, got %T", value)
	}
}
