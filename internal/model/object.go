package model

import (
	"strconv"

	"main/internal/model/enum"
)

// MaxDepthLevels is the number of order book levels carried by a tick.
const MaxDepthLevels = 5

// InstrumentKey builds the globally unique instrument identifier.
// Instruments are always referenced through this key, never by position.
func InstrumentKey(symbol, exchange string) string {
	return symbol + "." + exchange
}

// DepthLevel is one price level of an order book side.
type DepthLevel struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// Tick is a single market data update for one instrument.
// Ticks are immutable; a newer tick for the same instrument supersedes
// the previous one entirely.
type Tick struct {
	GatewayName string `json:"gatewayName"`
	Symbol      string `json:"symbol"`
	Exchange    string `json:"exchange"`
	TsNano      int64  `json:"tsNano"`

	LastPrice  float64 `json:"lastPrice"`
	LastVolume float64 `json:"lastVolume"`
	Volume     float64 `json:"volume"`

	Bids       [MaxDepthLevels]DepthLevel `json:"bids"`
	BidsLength int                        `json:"bidsLength"`
	Asks       [MaxDepthLevels]DepthLevel `json:"asks"`
	AsksLength int                        `json:"asksLength"`
}

func (t Tick) Key() string {
	return InstrumentKey(t.Symbol, t.Exchange)
}

// BestBid returns the top bid level, if present.
func (t Tick) BestBid() (DepthLevel, bool) {
	if t.BidsLength <= 0 {
		return DepthLevel{}, false
	}
	return t.Bids[0], true
}

// BestAsk returns the top ask level, if present.
func (t Tick) BestAsk() (DepthLevel, bool) {
	if t.AsksLength <= 0 {
		return DepthLevel{}, false
	}
	return t.Asks[0], true
}

// Bar is one OHLCV sampling interval for an instrument. Immutable once closed.
type Bar struct {
	GatewayName string           `json:"gatewayName"`
	Symbol      string           `json:"symbol"`
	Exchange    string           `json:"exchange"`
	TsNano      int64            `json:"tsNano"`
	Interval    enum.BarInterval `json:"interval"`

	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (b Bar) Key() string {
	return InstrumentKey(b.Symbol, b.Exchange)
}

// Order is the runtime view of one order. It is created on submission and
// mutated only by status events from its owning gateway.
type Order struct {
	GatewayName string         `json:"gatewayName"`
	OrderID     string         `json:"orderId"`
	Symbol      string         `json:"symbol"`
	Exchange    string         `json:"exchange"`
	Direction   enum.Direction `json:"direction"`
	Offset      enum.Offset    `json:"offset"`
	Type        enum.OrderType `json:"type"`
	Price       float64        `json:"price"`
	Volume      float64        `json:"volume"`
	Traded      float64        `json:"traded"`
	Status      enum.Status    `json:"status"`
	TsNano      int64          `json:"tsNano"`
}

// Key is the globally unique order identifier.
func (o Order) Key() string {
	return o.GatewayName + "." + o.OrderID
}

func (o Order) InstrumentKey() string {
	return InstrumentKey(o.Symbol, o.Exchange)
}

// IsActive reports whether the order can still transition.
func (o Order) IsActive() bool {
	return o.Status.IsActive()
}

// CreateCancel builds the cancel request for this order.
func (o Order) CreateCancel() CancelRequest {
	return CancelRequest{
		OrderID:  o.OrderID,
		Symbol:   o.Symbol,
		Exchange: o.Exchange,
	}
}

// Trade is a single fill of an order. Append-only.
type Trade struct {
	GatewayName string         `json:"gatewayName"`
	TradeID     string         `json:"tradeId"`
	OrderID     string         `json:"orderId"`
	Symbol      string         `json:"symbol"`
	Exchange    string         `json:"exchange"`
	Direction   enum.Direction `json:"direction"`
	Offset      enum.Offset    `json:"offset"`
	Price       float64        `json:"price"`
	Volume      float64        `json:"volume"`
	TsNano      int64          `json:"tsNano"`
}

func (t Trade) Key() string {
	return t.GatewayName + "." + t.TradeID
}

func (t Trade) OrderKey() string {
	return t.GatewayName + "." + t.OrderID
}

func (t Trade) InstrumentKey() string {
	return InstrumentKey(t.Symbol, t.Exchange)
}

// Position is the net holding of one instrument in one direction.
// Positions are owned by the state repository and derived from trades.
type Position struct {
	GatewayName string         `json:"gatewayName"`
	Symbol      string         `json:"symbol"`
	Exchange    string         `json:"exchange"`
	Direction   enum.Direction `json:"direction"`
	Volume      float64        `json:"volume"`
	Frozen      float64        `json:"frozen"`
	AvgPrice    float64        `json:"avgPrice"`
	PnL         float64        `json:"pnl"`
}

func (p Position) Key() string {
	return InstrumentKey(p.Symbol, p.Exchange) + "." + p.Direction.String()
}

// Account is the balance state pushed by one gateway.
type Account struct {
	GatewayName string  `json:"gatewayName"`
	AccountID   string  `json:"accountId"`
	Balance     float64 `json:"balance"`
	Frozen      float64 `json:"frozen"`
}

func (a Account) Key() string {
	return a.GatewayName + "." + a.AccountID
}

// Available is the balance not locked by pending orders.
func (a Account) Available() float64 {
	return a.Balance - a.Frozen
}

// Contract is static instrument metadata loaded at gateway connect time.
type Contract struct {
	GatewayName string       `json:"gatewayName"`
	Symbol      string       `json:"symbol"`
	Exchange    string       `json:"exchange"`
	Name        string       `json:"name"`
	Product     enum.Product `json:"product"`
	Size        float64      `json:"size"`
	PriceTick   float64      `json:"priceTick"`
	MinVolume   float64      `json:"minVolume"`
}

func (c Contract) Key() string {
	return InstrumentKey(c.Symbol, c.Exchange)
}

// LogEntry is a diagnostic message flowing through the bus. It is not part
// of trading state.
type LogEntry struct {
	GatewayName string        `json:"gatewayName"`
	Msg         string        `json:"msg"`
	Level       enum.LogLevel `json:"level"`
	TsNano      int64         `json:"tsNano"`
}

// FormatVolume renders a float volume without exponent notation.
func FormatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
