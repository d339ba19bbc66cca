package main

import (
	"flag"
	"os"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/bar"
	"main/internal/engine"
	"main/internal/event"
	"main/internal/gateway"
	"main/internal/gateway/binance"
	"main/internal/gateway/sim"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/oms"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/risk"
	"main/internal/rpc"
)

func main() {
	configPath := flag.String("config", "config/runtime.json", "Path to JSON config")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		logs.Errorf("config load failed: %+v", err)
		os.Exit(1)
	}

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trading-runtime",
			ServerAddress:   *pyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("pyroscope start failed: %+v", err)
		} else {
			defer profiler.Stop()
		}
	}

	metrics := obs.NewMetrics()
	busCfg := loaded.Bus
	busCfg.Metrics = metrics

	bus := event.New(busCfg)
	core := engine.New(bus, oms.Config{})
	defer core.Close()

	core.SetRiskChecker(risk.New(loaded.Risk, core.OMS(), metrics))

	if loaded.BarEnabled {
		if err := core.AddEngine(bar.New(bus, loaded.Bar)); err != nil {
			logs.Errorf("add bar engine: %+v", err)
			os.Exit(1)
		}
	}
	if loaded.RecorderEnabled {
		rec, err := recorder.New(bus, loaded.Recorder)
		if err != nil {
			logs.Errorf("recorder init failed: %+v", err)
			os.Exit(1)
		}
		if err := core.AddEngine(rec); err != nil {
			logs.Errorf("add recorder engine: %+v", err)
			os.Exit(1)
		}
	}

	for _, gwCfg := range loaded.Gateways {
		gw := buildGateway(gwCfg, bus)
		if err := core.AddGateway(gw); err != nil {
			logs.Errorf("add gateway %s: %+v", gw.Name(), err)
			os.Exit(1)
		}
		if err := core.Connect(gw.Name(), gwCfg.Settings); err != nil {
			logs.Errorf("connect gateway %s: %+v", gw.Name(), err)
			continue
		}
		for _, sub := range gwCfg.Subscriptions {
			req := model.SubscribeRequest{Symbol: sub.Symbol, Exchange: sub.Exchange}
			if err := core.Subscribe(req, gw.Name()); err != nil {
				logs.Errorf("subscribe %s on %s: %+v", req.InstrumentKey(), gw.Name(), err)
			}
		}
	}

	if loaded.RPCEnabled {
		svc, err := rpc.NewService(core, loaded.RPC)
		if err != nil {
			logs.Errorf("rpc service init failed: %+v", err)
			os.Exit(1)
		}
		if err := svc.Start(); err != nil {
			logs.Errorf("rpc service start failed: %+v", err)
			os.Exit(1)
		}
		defer svc.Stop()
	}

	logs.Infof("runtime started, gateways: %v", core.GatewayNames())
	<-sys.Shutdown()
	logs.Info("shutting down")
}

func buildGateway(cfg ops.GatewayConfig, bus *event.Engine) gateway.Gateway {
	switch cfg.Kind {
	case "binance":
		return binance.New(cfg.Name, bus)
	default:
		return sim.New(cfg.Name, bus)
	}
}
