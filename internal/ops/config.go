// Package ops loads the runtime's JSON configuration file and resolves it
// into the component configs consumed by cmd/runtime.
package ops

import (
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"main/internal/bar"
	"main/internal/event"
	"main/internal/model/enum"
	"main/internal/recorder"
	"main/internal/risk"
	"main/internal/rpc"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Runtime  RuntimeConfig   `json:"runtime"`
	Gateways []GatewayConfig `json:"gateways"`
	Risk     risk.Config     `json:"risk"`
	Bar      BarConfig       `json:"bar"`
	RPC      RPCConfig       `json:"rpc"`
	Recorder RecorderConfig  `json:"recorder"`
}

// RuntimeConfig tunes the event bus.
type RuntimeConfig struct {
	TimerIntervalMs int `json:"timerIntervalMs"`
	QueueSize       int `json:"queueSize"`
}

// GatewayConfig declares one gateway to register, connect, and subscribe.
type GatewayConfig struct {
	// Kind selects the implementation: "sim" or "binance".
	Kind string `json:"kind"`
	// Name overrides the implementation's default registry name.
	Name          string              `json:"name"`
	Settings      map[string]string   `json:"settings"`
	Subscriptions []SubscriptionEntry `json:"subscriptions"`
}

// SubscriptionEntry names one instrument to subscribe after connect.
type SubscriptionEntry struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

// BarConfig enables the bar aggregation engine.
type BarConfig struct {
	Enabled bool `json:"enabled"`
	// Interval is "1m", "1h" or "1d". Defaults to "1m".
	Interval string `json:"interval"`
}

// RPCConfig enables the RPC service.
type RPCConfig struct {
	Enabled              bool   `json:"enabled"`
	ReqAddress           string `json:"reqAddress"`
	PubAddress           string `json:"pubAddress"`
	HeartbeatIntervalMs  int    `json:"heartbeatIntervalMs"`
	HeartbeatToleranceMs int    `json:"heartbeatToleranceMs"`
}

// RecorderConfig enables the persistence engine.
type RecorderConfig struct {
	Enabled bool `json:"enabled"`
	recorder.Config
}

// Loaded is the resolved configuration ready for wiring.
type Loaded struct {
	Bus      event.Config
	Gateways []GatewayConfig
	Risk     risk.Config

	BarEnabled bool
	Bar        bar.Config

	RPCEnabled         bool
	RPC                rpc.ServerConfig
	HeartbeatTolerance time.Duration

	RecorderEnabled bool
	Recorder        recorder.Config
}

// Load reads and resolves a JSON config file.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config").With("path", path)
	}
	var cfg FileConfig
	if err := sonic.ConfigFastest.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "parse config").With("path", path)
	}
	return Resolve(cfg)
}

// Resolve turns the file layout into component configs, applying defaults.
func Resolve(cfg FileConfig) (Loaded, error) {
	loaded := Loaded{
		Bus: event.Config{
			QueueSize:     cfg.Runtime.QueueSize,
			TimerInterval: time.Duration(cfg.Runtime.TimerIntervalMs) * time.Millisecond,
		},
		Gateways: cfg.Gateways,
		Risk:     cfg.Risk,
	}

	for _, gw := range cfg.Gateways {
		switch gw.Kind {
		case "sim", "binance":
		default:
			return Loaded{}, errors.Errorf("unknown gateway kind: %q", gw.Kind)
		}
	}

	if cfg.Bar.Enabled {
		interval, err := parseInterval(cfg.Bar.Interval)
		if err != nil {
			return Loaded{}, err
		}
		loaded.BarEnabled = true
		loaded.Bar = bar.Config{Interval: interval}
	}

	if cfg.RPC.Enabled {
		if cfg.RPC.ReqAddress == "" || cfg.RPC.PubAddress == "" {
			return Loaded{}, errors.Errorf("rpc enabled without reqAddress/pubAddress")
		}
		loaded.RPCEnabled = true
		loaded.RPC = rpc.ServerConfig{
			ReqAddress:        cfg.RPC.ReqAddress,
			PubAddress:        cfg.RPC.PubAddress,
			HeartbeatInterval: time.Duration(cfg.RPC.HeartbeatIntervalMs) * time.Millisecond,
		}
		loaded.HeartbeatTolerance = time.Duration(cfg.RPC.HeartbeatToleranceMs) * time.Millisecond
	}

	if cfg.Recorder.Enabled {
		loaded.RecorderEnabled = true
		loaded.Recorder = cfg.Recorder.Config
	}

	return loaded, nil
}

func parseInterval(raw string) (enum.BarInterval, error) {
	switch raw {
	case "", "1m":
		return enum.BarIntervalMinute, nil
	case "1h":
		return enum.BarIntervalHour, nil
	case "1d":
		return enum.BarIntervalDaily, nil
	default:
		return 0, errors.Errorf("unknown bar interval: %q", raw)
	}
}
