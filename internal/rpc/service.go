package rpc

import (
	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"main/internal/engine"
	"main/internal/event"
	"main/internal/model"
	"main/pkg/exception"
)

// Service exposes the orchestrator facade over RPC and republishes every
// bus event as a broadcast packet whose topic is the event type.
type Service struct {
	main *engine.MainEngine
	srv  *Server
}

// NewService builds the server and registers the facade methods. Call
// Start to begin serving.
func NewService(main *engine.MainEngine, cfg ServerConfig) (*Service, error) {
	s := &Service{
		main: main,
		srv:  NewServer(cfg),
	}

	methods := map[string]HandlerFunc{
		"connect":             s.connect,
		"subscribe":           s.subscribe,
		"send_order":          s.sendOrder,
		"cancel_order":        s.cancelOrder,
		"query_account":       s.queryAccount,
		"query_position":      s.queryPosition,
		"query_active_orders": s.queryActiveOrders,
		"query_contract":      s.queryContract,
		"query_tick":          s.queryTick,
	}
	for name, fn := range methods {
		if err := s.srv.Register(name, fn); err != nil {
			return nil, errors.Wrap(err, "register method").With("method", name)
		}
	}

	main.Bus().SubscribeAll(s.republish)
	return s, nil
}

// Start begins serving on both channels.
func (s *Service) Start() error {
	return s.srv.Start()
}

// Stop detaches from the bus and shuts the server down.
func (s *Service) Stop() {
	s.main.Bus().UnsubscribeAll(s.republish)
	s.srv.Stop()
}

// Server exposes the underlying server, mainly for extra registrations.
func (s *Service) Server() *Server {
	return s.srv
}

func (s *Service) republish(ev event.Event) {
	s.srv.Publish(ev.Type, ev.Data)
}

func (s *Service) connect(_ []any, kwargs map[string]any) (any, error) {
	gatewayName, err := stringArg(kwargs, "gateway")
	if err != nil {
		return nil, err
	}
	settings := make(map[string]string)
	if raw, ok := kwargs["settings"].(map[string]any); ok {
		for key, value := range raw {
			if str, ok := value.(string); ok {
				settings[key] = str
			}
		}
	}
	return nil, s.main.Connect(gatewayName, settings)
}

func (s *Service) subscribe(_ []any, kwargs map[string]any) (any, error) {
	gatewayName, err := stringArg(kwargs, "gateway")
	if err != nil {
		return nil, err
	}
	req, err := decodeKWArgs[model.SubscribeRequest](kwargs)
	if err != nil {
		return nil, err
	}
	return nil, s.main.Subscribe(req, gatewayName)
}

func (s *Service) sendOrder(_ []any, kwargs map[string]any) (any, error) {
	gatewayName, err := stringArg(kwargs, "gateway")
	if err != nil {
		return nil, err
	}
	req, err := decodeKWArgs[model.OrderRequest](kwargs)
	if err != nil {
		return nil, err
	}
	return s.main.SendOrder(req, gatewayName)
}

func (s *Service) cancelOrder(_ []any, kwargs map[string]any) (any, error) {
	gatewayName, err := stringArg(kwargs, "gateway")
	if err != nil {
		return nil, err
	}
	req, err := decodeKWArgs[model.CancelRequest](kwargs)
	if err != nil {
		return nil, err
	}
	return nil, s.main.CancelOrder(req, gatewayName)
}

func (s *Service) queryAccount(_ []any, _ map[string]any) (any, error) {
	return s.main.OMS().GetAllAccounts(), nil
}

func (s *Service) queryPosition(_ []any, _ map[string]any) (any, error) {
	return s.main.OMS().GetAllPositions(), nil
}

func (s *Service) queryActiveOrders(_ []any, kwargs map[string]any) (any, error) {
	instrument, _ := kwargs["instrument"].(string)
	return s.main.OMS().GetAllActiveOrders(instrument), nil
}

func (s *Service) queryContract(_ []any, _ map[string]any) (any, error) {
	return s.main.OMS().GetAllContracts(), nil
}

func (s *Service) queryTick(_ []any, kwargs map[string]any) (any, error) {
	if instrument, ok := kwargs["instrument"].(string); ok && instrument != "" {
		tick, found := s.main.OMS().GetTick(instrument)
		if !found {
			return nil, errors.Wrap(exception.ErrGatewayInvalidRequest, "no tick for "+instrument)
		}
		return tick, nil
	}
	return s.main.OMS().GetAllTicks(), nil
}

func stringArg(kwargs map[string]any, key string) (string, error) {
	value, ok := kwargs[key].(string)
	if !ok || value == "" {
		return "", errors.Wrap(exception.ErrGatewayInvalidRequest, "missing "+key)
	}
	return value, nil
}

// decodeKWArgs maps loosely typed call arguments onto a concrete request
// through the wire codec, so field names and enum encodings stay identical
// to the broadcast payloads.
func decodeKWArgs[T any](kwargs map[string]any) (out T, err error) {
	raw, err := sonic.ConfigFastest.Marshal(kwargs)
	if err != nil {
		return out, errors.Wrap(err, "encode kwargs")
	}
	if err := sonic.ConfigFastest.Unmarshal(raw, &out); err != nil {
		return out, errors.Wrap(err, "decode kwargs")
	}
	return out, nil
}
