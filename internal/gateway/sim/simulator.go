/*
Package sim implements a self-contained paper-trading gateway.

It produces a synthetic random-walk tick stream for every subscribed
instrument, driven by the bus timer event, and fills resting limit orders
when the generated price crosses them. All state flows out through the
canonical events, exactly like a real venue adapter.
*/
package sim

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"main/internal/event"
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// GatewayName is the default registry name.
const GatewayName = "SIM"

const (
	defaultBasePrice = 100.0
	defaultSpread    = 0.02
	defaultStep      = 0.05
	defaultBalance   = 1_000_000.0
)

// Gateway is a simulated trading back-end.
type Gateway struct {
	gateway.Base

	mu        sync.Mutex
	connected bool
	rng       *rand.Rand
	basePrice float64
	spread    float64
	step      float64

	nextOrderID uint64
	nextTradeID uint64

	prices     map[string]float64
	subscribed map[string]model.SubscribeRequest
	active     map[string]model.Order
	positions  map[string]*model.Position
	account    model.Account
}

// New creates a simulator publishing through the given bus. The gateway
// reacts to the bus's reserved timer event once connected.
func New(name string, bus *event.Engine) *Gateway {
	if name == "" {
		name = GatewayName
	}
	g := &Gateway{
		Base:       gateway.NewBase(name, bus),
		basePrice:  defaultBasePrice,
		spread:     defaultSpread,
		step:       defaultStep,
		prices:     make(map[string]float64),
		subscribed: make(map[string]model.SubscribeRequest),
		active:     make(map[string]model.Order),
		positions:  make(map[string]*model.Position),
	}
	bus.Subscribe(event.TypeTimer, g.onTimer)
	return g
}

// Connect initializes the session. Recognized settings, all optional:
// "seed", "basePrice", "spread", "step", "balance", and "symbols" as a
// comma-separated list of instrument keys to preload contracts for.
func (g *Gateway) Connect(settings map[string]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	seed := time.Now().UnixNano()
	if raw, ok := settings["seed"]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			g.WriteLog(enum.LogLevelError, "sim connect: bad seed: "+raw)
			return exception.ErrGatewayInvalidRequest
		}
		seed = parsed
	}
	g.rng = rand.New(rand.NewSource(seed))
	g.basePrice = settingFloat(settings, "basePrice", defaultBasePrice)
	g.spread = settingFloat(settings, "spread", defaultSpread)
	g.step = settingFloat(settings, "step", defaultStep)

	g.account = model.Account{
		AccountID: "paper",
		Balance:   settingFloat(settings, "balance", defaultBalance),
	}
	g.connected = true

	for _, key := range splitSymbols(settings["symbols"]) {
		symbol, exchange, ok := splitInstrumentKey(key)
		if !ok {
			g.WriteLog(enum.LogLevelWarning, "sim connect: bad instrument key: "+key)
			continue
		}
		g.publishContractLocked(symbol, exchange)
	}

	g.OnAccount(g.account)
	g.WriteLog(enum.LogLevelInfo, "sim gateway connected")
	return nil
}

// Close marks the session disconnected; tick generation stops. Idempotent.
func (g *Gateway) Close() error {
	g.mu.Lock()
	g.connected = false
	g.mu.Unlock()
	return nil
}

// Subscribe starts tick generation for one instrument.
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
	if _, ok := g.subscribed[key]; ok {
		return nil
	}
	g.subscribed[key] = req
	if _, ok := g.prices[key]; !ok {
		g.prices[key] = g.basePrice
	}
	g.publishContractLocked(req.Symbol, req.Exchange)
	return nil
}

// SendOrder accepts the request immediately; the submitting and accepted
// order states arrive as events, fills arrive when a generated tick
// crosses the price.
func (g *Gateway) SendOrder(req model.OrderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return "", exception.ErrGatewayNotConnected
	}

	g.nextOrderID++
	orderID := strconv.FormatUint(g.nextOrderID, 10)
	order := req.CreateOrder(g.Name(), orderID)
	g.OnOrder(order)

	order.Status = enum.StatusNotTraded
	g.OnOrder(order)

	if order.Type == enum.OrderTypeMarket {
		price, ok := g.prices[order.InstrumentKey()]
		if !ok {
			price = g.basePrice
		}
		g.fillLocked(order, price)
		return orderID, nil
	}

	g.active[order.Key()] = order
	if price, ok := g.prices[order.InstrumentKey()]; ok && crosses(order, price) {
		delete(g.active, order.Key())
		g.fillLocked(order, order.Price)
	}
	return orderID, nil
}

// CancelOrder cancels a resting order if it is still active.
func (g *Gateway) CancelOrder(req model.CancelRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return exception.ErrGatewayNotConnected
	}
	key := g.Name() + "." + req.OrderID
	order, ok := g.active[key]
	if !ok {
		g.WriteLog(enum.LogLevelWarning, "sim cancel: no active order "+req.OrderID)
		return exception.ErrOMSUnknownOrder
	}
	delete(g.active, key)
	order.Status = enum.StatusCancelled
	g.OnOrder(order)
	return nil
}

// QueryAccount pushes the current account snapshot.
func (g *Gateway) QueryAccount() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return exception.ErrGatewayNotConnected
	}
	g.OnAccount(g.account)
	return nil
}

// QueryPosition pushes every simulated position.
func (g *Gateway) QueryPosition() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return exception.ErrGatewayNotConnected
	}
	for _, pos := range g.positions {
		g.OnPosition(*pos)
	}
	return nil
}

// onTimer advances the random walk and publishes one tick per subscribed
// instrument, then matches resting orders against the new prices.
func (g *Gateway) onTimer(event.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected || g.rng == nil {
		return
	}
	for key, req := range g.subscribed {
		price := g.prices[key]
		price += (g.rng.Float64()*2 - 1) * g.step
		if price < g.step {
			price = g.step
		}
		g.prices[key] = price
		g.OnTick(g.buildTick(req, price))
		g.matchLocked(key, price)
	}
}

func (g *Gateway) buildTick(req model.SubscribeRequest, price float64) model.Tick {
	tick := model.Tick{
		Symbol:     req.Symbol,
		Exchange:   req.Exchange,
		TsNano:     time.Now().UTC().UnixNano(),
		LastPrice:  price,
		LastVolume: float64(1 + g.rng.Intn(100)),
		BidsLength: model.MaxDepthLevels,
		AsksLength: model.MaxDepthLevels,
	}
	for i := 0; i < model.MaxDepthLevels; i++ {
		depth := g.spread * float64(i+1)
		tick.Bids[i] = model.DepthLevel{Price: price - depth, Volume: float64(100 * (i + 1))}
		tick.Asks[i] = model.DepthLevel{Price: price + depth, Volume: float64(100 * (i + 1))}
	}
	return tick
}

func (g *Gateway) matchLocked(instrumentKey string, price float64) {
	for key, order := range g.active {
		if order.InstrumentKey() != instrumentKey {
			continue
		}
		if crosses(order, price) {
			delete(g.active, key)
			g.fillLocked(order, order.Price)
		}
	}
}

// crosses reports whether the last price makes a resting limit order
// marketable.
func crosses(order model.Order, price float64) bool {
	if order.Direction == enum.DirectionShort {
		return price >= order.Price
	}
	return price <= order.Price
}

// fillLocked fills the order completely at the given price and publishes
// the terminal order state, the trade, and the account update.
func (g *Gateway) fillLocked(order model.Order, price float64) {
	order.Traded = order.Volume
	order.Status = enum.StatusAllTraded
	g.OnOrder(order)

	g.nextTradeID++
	trade := model.Trade{
		TradeID:   strconv.FormatUint(g.nextTradeID, 10),
		OrderID:   order.OrderID,
		Symbol:    order.Symbol,
		Exchange:  order.Exchange,
		Direction: order.Direction,
		Offset:    order.Offset,
		Price:     price,
		Volume:    order.Volume,
		TsNano:    time.Now().UTC().UnixNano(),
	}
	g.OnTrade(trade)
	g.applyPositionLocked(trade)

	notional := price * order.Volume
	if order.Direction == enum.DirectionShort {
		g.account.Balance += notional
	} else {
		g.account.Balance -= notional
	}
	g.OnAccount(g.account)
}

func (g *Gateway) applyPositionLocked(trade model.Trade) {
	key := trade.InstrumentKey() + "." + trade.Direction.String()
	pos, ok := g.positions[key]
	if !ok {
		pos = &model.Position{
			Symbol:    trade.Symbol,
			Exchange:  trade.Exchange,
			Direction: trade.Direction,
		}
		g.positions[key] = pos
	}
	total := pos.Volume + trade.Volume
	if total > 0 {
		pos.AvgPrice = (pos.AvgPrice*pos.Volume + trade.Price*trade.Volume) / total
	}
	pos.Volume = total
}

func (g *Gateway) publishContractLocked(symbol, exchange string) {
	g.OnContract(model.Contract{
		Symbol:    symbol,
		Exchange:  exchange,
		Name:      symbol + " (simulated)",
		Product:   enum.ProductEquity,
		Size:      1,
		PriceTick: 0.01,
		MinVolume: 1,
	})
}

func settingFloat(settings map[string]string, key string, fallback float64) float64 {
	raw, ok := settings[key]
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func splitInstrumentKey(key string) (symbol, exchange string, ok bool) {
	idx := strings.LastIndex(key, ".")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}
