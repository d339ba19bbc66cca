// Package binance implements a market-data-only gateway over the public
// Binance websocket streams. Trading operations are not supported; the
// gateway exists to feed real depth and trade updates into the bus.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/pkg/ws"

	"main/internal/event"
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// GatewayName is the default registry name.
const GatewayName = "BINANCE"

const (
	// Market-data-only endpoint; the trading endpoints are never dialed.
	defaultWsURL = "wss://data-stream.binance.vision/ws"

	// ExchangeName stamps every published entity.
	ExchangeName = "BINANCE"
)

// Gateway streams depth and trade updates for subscribed instruments.
// Each instrument runs its own websocket session so that payloads, which
// carry no stream name, stay attributable.
type Gateway struct {
	gateway.Base

	mu        sync.Mutex
	connected bool
	wsURL     string
	ctx       context.Context
	cancel    context.CancelFunc
	streams   map[string]*stream
}

// New creates a disconnected gateway publishing through the given bus.
func New(name string, bus *event.Engine) *Gateway {
	if name == "" {
		name = GatewayName
	}
	return &Gateway{
		Base:    gateway.NewBase(name, bus),
		wsURL:   defaultWsURL,
		streams: make(map[string]*stream),
	}
}

// Connect prepares the session. Recognized settings: "wsUrl" overrides the
// public endpoint. Actual sockets are dialed lazily per Subscribe.
func (g *Gateway) Connect(settings map[string]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.connected {
		return nil
	}
	if url := settings["wsUrl"]; url != "" {
		g.wsURL = url
	}
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.connected = true
	g.WriteLog(enum.LogLevelInfo, "binance gateway connected")
	return nil
}

// Close tears down every stream. Idempotent.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return nil
	}
	g.connected = false
	g.cancel()
	for key, st := range g.streams {
		st.close()
		delete(g.streams, key)
	}
	return nil
}

// Subscribe dials a dedicated websocket for the instrument and starts the
// depth and trade streams.
func (g *Gateway) Subscribe(req model.SubscribeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return exception.ErrGatewayNotConnected
	}
	key := req.InstrumentKey()
	if _, ok := g.streams[key]; ok {
		return nil
	}

	st := newStream(g, req)
	if err := st.start(g.ctx, g.wsURL); err != nil {
		g.WriteLog(enum.LogLevelError, "binance subscribe "+req.Symbol+": "+err.Error())
		return errors.Wrap(err, "subscribe").With("symbol", req.Symbol)
	}
	g.streams[key] = st

	g.OnContract(model.Contract{
		Symbol:    req.Symbol,
		Exchange:  req.Exchange,
		Name:      req.Symbol,
		Product:   enum.ProductSpot,
		Size:      1,
		PriceTick: 0.00000001,
		MinVolume: 0.00000001,
	})
	return nil
}

// SendOrder is not supported on a market-data-only session.
func (g *Gateway) SendOrder(model.OrderRequest) (string, error) {
	g.WriteLog(enum.LogLevelWarning, "binance gateway does not support order entry")
	return "", exception.ErrGatewayOrderUnsupported
}

// CancelOrder is not supported on a market-data-only session.
func (g *Gateway) CancelOrder(model.CancelRequest) error {
	g.WriteLog(enum.LogLevelWarning, "binance gateway does not support order entry")
	return exception.ErrGatewayOrderUnsupported
}

// QueryAccount is not supported on a market-data-only session.
func (g *Gateway) QueryAccount() error {
	return exception.ErrGatewayOrderUnsupported
}

// QueryPosition is not supported on a market-data-only session.
func (g *Gateway) QueryPosition() error {
	return exception.ErrGatewayOrderUnsupported
}

// stream is one instrument's websocket session. It accumulates the latest
// depth snapshot and trade print into a tick and republishes on every
// update.
type stream struct {
	owner *Gateway
	req   model.SubscribeRequest

	wss    *ws.WebSocket
	cancel func()

	tickMu sync.Mutex
	tick   model.Tick
}

func newStream(owner *Gateway, req model.SubscribeRequest) *stream {
	return &stream{
		owner: owner,
		req:   req,
		tick: model.Tick{
			Symbol:   req.Symbol,
			Exchange: req.Exchange,
		},
	}
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type subscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

type depthPayload struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"` // [0]price [1]quantity
	Asks         [][2]string `json:"asks"` // [0]price [1]quantity
}

type tradePayload struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

func (s *stream) start(ctx context.Context, url string) error {
	s.wss = ws.New(ctx, url)
	if err := s.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	lower := strings.ToLower(s.req.Symbol)
	appendIntoRegister := true
	if err := s.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, wss *ws.WebSocket) error {
			payload := subscribeRequest{
				Method: "SUBSCRIBE",
				Params: []string{
					fmt.Sprintf("%s@depth%d@100ms", lower, model.MaxDepthLevels),
					fmt.Sprintf("%s@trade", lower),
				},
				ID: 1,
			}
			if err := wss.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp subscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != 1 {
				return false, nil
			}
			if resp.Result != nil {
				return false, errors.Errorf("subscribe rejected: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		s.wss.Close()
		return errors.Wrap(err, "send and wait")
	}

	ch, cancel := s.wss.Subscribe()
	s.cancel = cancel
	go s.observe(ctx, ch)
	return nil
}

func (s *stream) close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.wss != nil {
		s.wss.Close()
	}
}

func (s *stream) observe(ctx context.Context, ch <-chan ws.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			if trade, ok := ws.ReadMessage[tradePayload](m); ok && trade.EventType == "trade" {
				s.applyTrade(trade)
				continue
			}
			if depth, ok := ws.ReadMessage[depthPayload](m); ok && depth.LastUpdateID > 0 {
				s.applyDepth(depth)
			}
		}
	}
}

func (s *stream) applyTrade(payload tradePayload) {
	price, err1 := strconv.ParseFloat(payload.Price, 64)
	volume, err2 := strconv.ParseFloat(payload.Quantity, 64)
	if err1 != nil || err2 != nil {
		return
	}

	s.tickMu.Lock()
	s.tick.LastPrice = price
	s.tick.LastVolume = volume
	s.tick.TsNano = payload.TradeTime * int64(time.Millisecond)
	tick := s.tick
	s.tickMu.Unlock()

	s.owner.OnTick(tick)
}

func (s *stream) applyDepth(payload depthPayload) {
	s.tickMu.Lock()
	s.tick.BidsLength = fillLevels(&s.tick.Bids, payload.Bids)
	s.tick.AsksLength = fillLevels(&s.tick.Asks, payload.Asks)
	if s.tick.TsNano == 0 {
		s.tick.TsNano = time.Now().UTC().UnixNano()
	}
	tick := s.tick
	s.tickMu.Unlock()

	s.owner.OnTick(tick)
}

func fillLevels(dst *[model.MaxDepthLevels]model.DepthLevel, src [][2]string) int {
	n := 0
	for _, level := range src {
		if n == model.MaxDepthLevels {
			break
		}
		price, err1 := strconv.ParseFloat(level[0], 64)
		volume, err2 := strconv.ParseFloat(level[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		dst[n] = model.DepthLevel{Price: price, Volume: volume}
		n++
	}
	return n
}
