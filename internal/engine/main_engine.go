/*
Package engine composes the event bus, gateways, and functional engines
into one addressable runtime facade.

Construction order matters: the bus starts first so that nothing a gateway
publishes during connect is lost, engines register second, gateways connect
last. Close walks the same chain in reverse so in-flight gateway events are
still consumed by the state repository before the bus stops.
*/
package engine

import (
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/event"
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/oms"
	"main/pkg/exception"
)

// Engine is one functional unit registered on the main engine, started by
// construction and torn down by Close.
type Engine interface {
	Name() string
	Close() error
}

// RiskChecker validates an order request before it reaches any gateway.
type RiskChecker interface {
	Check(req model.OrderRequest) error
}

// MainEngine is the runtime orchestrator. Construct explicitly with New and
// pass it by reference; there is no ambient global instance.
type MainEngine struct {
	bus  *event.Engine
	repo *oms.Engine
	risk RiskChecker

	mu       sync.RWMutex
	gateways map[string]gateway.Gateway
	engines  map[string]Engine
	order    []string

	closeOnce sync.Once
	closeErr  error
}

// New creates the orchestrator, starts the bus, and registers the state
// repository as the first functional engine.
func New(bus *event.Engine, repoCfg oms.Config) *MainEngine {
	m := &MainEngine{
		bus:      bus,
		gateways: make(map[string]gateway.Gateway),
		engines:  make(map[string]Engine),
	}
	bus.Start()
	m.repo = oms.New(bus, repoCfg)
	m.engines[m.repo.Name()] = m.repo
	m.order = append(m.order, m.repo.Name())
	return m
}

// Bus exposes the event bus for subscribers and publishers.
func (m *MainEngine) Bus() *event.Engine {
	return m.bus
}

// OMS exposes the state repository's query surface.
func (m *MainEngine) OMS() *oms.Engine {
	return m.repo
}

// SetRiskChecker installs a pre-trade validator consulted by SendOrder.
func (m *MainEngine) SetRiskChecker(checker RiskChecker) {
	m.mu.Lock()
	m.risk = checker
	m.mu.Unlock()
}

// AddEngine registers a functional engine by its name.
func (m *MainEngine) AddEngine(e Engine) error {
	if e == nil {
		return exception.ErrNilInstance
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.engines[e.Name()]; ok {
		return errors.Wrap(exception.ErrEngineDuplicate, e.Name())
	}
	m.engines[e.Name()] = e
	m.order = append(m.order, e.Name())
	return nil
}

// GetEngine looks an engine up by name.
func (m *MainEngine) GetEngine(name string) (Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.engines[name]
	if !ok {
		return nil, errors.Wrap(exception.ErrEngineNotFound, name)
	}
	return e, nil
}

// AddGateway registers a gateway instance by its name.
func (m *MainEngine) AddGateway(gw gateway.Gateway) error {
	if gw == nil {
		return exception.ErrNilInstance
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gateways[gw.Name()]; ok {
		return errors.Wrap(exception.ErrGatewayDuplicate, gw.Name())
	}
	m.gateways[gw.Name()] = gw
	return nil
}

// GetGateway looks a gateway up by name. Unknown names are an explicit
// error, never a silent no-op.
func (m *MainEngine) GetGateway(name string) (gateway.Gateway, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gw, ok := m.gateways[name]
	if !ok {
		return nil, errors.Wrap(exception.ErrGatewayNotFound, name)
	}
	return gw, nil
}

// GatewayNames lists the registered gateway names.
func (m *MainEngine) GatewayNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.gateways))
	for name := range m.gateways {
		names = append(names, name)
	}
	return names
}

// Connect establishes the named gateway's vendor session.
func (m *MainEngine) Connect(gatewayName string, settings map[string]string) error {
	gw, err := m.GetGateway(gatewayName)
	if err != nil {
		return err
	}
	if err := gw.Connect(settings); err != nil {
		return errors.Wrap(err, "connect "+gatewayName)
	}
	return nil
}

// Subscribe requests market data from the named gateway.
func (m *MainEngine) Subscribe(req model.SubscribeRequest, gatewayName string) error {
	if err := req.Validate(); err != nil {
		return err
	}
	gw, err := m.GetGateway(gatewayName)
	if err != nil {
		return err
	}
	return gw.Subscribe(req)
}

// SendOrder validates the request, runs pre-trade checks, and delegates to
// the named gateway. The returned id is local; acceptance arrives later as
// an order event.
func (m *MainEngine) SendOrder(req model.OrderRequest, gatewayName string) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	gw, err := m.GetGateway(gatewayName)
	if err != nil {
		return "", err
	}
	m.mu.RLock()
	checker := m.risk
	m.mu.RUnlock()
	if checker != nil {
		if err := checker.Check(req); err != nil {
			m.WriteLog(enum.LogLevelError, "order rejected: "+err.Error())
			return "", err
		}
	}
	return gw.SendOrder(req)
}

// CancelOrder delegates a cancel request to the named gateway.
func (m *MainEngine) CancelOrder(req model.CancelRequest, gatewayName string) error {
	if err := req.Validate(); err != nil {
		return err
	}
	gw, err := m.GetGateway(gatewayName)
	if err != nil {
		return err
	}
	return gw.CancelOrder(req)
}

// QueryAccount asks the named gateway for a fresh account snapshot.
func (m *MainEngine) QueryAccount(gatewayName string) error {
	gw, err := m.GetGateway(gatewayName)
	if err != nil {
		return err
	}
	return gw.QueryAccount()
}

// QueryPosition asks the named gateway for fresh position snapshots.
func (m *MainEngine) QueryPosition(gatewayName string) error {
	gw, err := m.GetGateway(gatewayName)
	if err != nil {
		return err
	}
	return gw.QueryPosition()
}

// WriteLog publishes a runtime-level log event.
func (m *MainEngine) WriteLog(level enum.LogLevel, msg string) {
	m.bus.Publish(event.Event{Type: event.TypeLog, Data: model.LogEntry{
		GatewayName: "runtime",
		Msg:         msg,
		Level:       level,
		TsNano:      time.Now().UTC().UnixNano(),
	}})
}

// Close shuts the runtime down: gateways first so they stop producing,
// engines second in reverse registration order, the bus last after it has
// drained. Idempotent.
func (m *MainEngine) Close() error {
	m.closeOnce.Do(func() {
		m.mu.RLock()
		gateways := make([]gateway.Gateway, 0, len(m.gateways))
		for _, gw := range m.gateways {
			gateways = append(gateways, gw)
		}
		order := make([]string, len(m.order))
		copy(order, m.order)
		engines := make(map[string]Engine, len(m.engines))
		for name, e := range m.engines {
			engines[name] = e
		}
		m.mu.RUnlock()

		var closeErr error
		for _, gw := range gateways {
			if err := gw.Close(); err != nil {
				logs.Errorf("close gateway %s, err: %+v", gw.Name(), err)
				closeErr = err
			}
		}
		for i := len(order) - 1; i >= 0; i-- {
			e := engines[order[i]]
			if err := e.Close(); err != nil {
				logs.Errorf("close engine %s, err: %+v", e.Name(), err)
				closeErr = err
			}
		}
		m.bus.Stop()
		m.closeErr = closeErr
	})
	return m.closeErr
}
