package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model/enum"
)

const sampleConfig = `{
  "runtime": {"timerIntervalMs": 250, "queueSize": 1024},
  "gateways": [
    {
      "kind": "sim",
      "settings": {"seed": "42", "basePrice": "100"},
      "subscriptions": [{"symbol": "AAPL", "exchange": "NASDAQ"}]
    }
  ],
  "risk": {"maxOrderVolume": 100},
  "bar": {"enabled": true, "interval": "1h"},
  "rpc": {
    "enabled": true,
    "reqAddress": "tcp://127.0.0.1:2014",
    "pubAddress": "tcp://127.0.0.1:2015",
    "heartbeatIntervalMs": 500,
    "heartbeatToleranceMs": 1500
  },
  "recorder": {"enabled": false}
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runtime.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadResolvesEverything(t *testing.T) {
	loaded, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, loaded.Bus.TimerInterval)
	assert.Equal(t, 1024, loaded.Bus.QueueSize)

	require.Len(t, loaded.Gateways, 1)
	assert.Equal(t, "sim", loaded.Gateways[0].Kind)
	assert.Equal(t, "42", loaded.Gateways[0].Settings["seed"])
	require.Len(t, loaded.Gateways[0].Subscriptions, 1)
	assert.Equal(t, "AAPL", loaded.Gateways[0].Subscriptions[0].Symbol)

	assert.Equal(t, 100.0, loaded.Risk.MaxOrderVolume)

	assert.True(t, loaded.BarEnabled)
	assert.Equal(t, enum.BarIntervalHour, loaded.Bar.Interval)

	assert.True(t, loaded.RPCEnabled)
	assert.Equal(t, "tcp://127.0.0.1:2014", loaded.RPC.ReqAddress)
	assert.Equal(t, 500*time.Millisecond, loaded.RPC.HeartbeatInterval)
	assert.Equal(t, 1500*time.Millisecond, loaded.HeartbeatTolerance)

	assert.False(t, loaded.RecorderEnabled)
}

func TestResolveRejectsUnknownGatewayKind(t *testing.T) {
	_, err := Resolve(FileConfig{Gateways: []GatewayConfig{{Kind: "ibkr"}}})
	assert.Error(t, err)
}

func TestResolveRejectsRPCWithoutAddresses(t *testing.T) {
	_, err := Resolve(FileConfig{RPC: RPCConfig{Enabled: true}})
	assert.Error(t, err)
}

func TestResolveRejectsBadInterval(t *testing.T) {
	_, err := Resolve(FileConfig{Bar: BarConfig{Enabled: true, Interval: "7m"}})
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
