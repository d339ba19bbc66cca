/*
Package gateway defines the capability contract every trading back-end
adapter must satisfy, and the publishing helpers shared by implementations.

A gateway never hands trading data back to its caller synchronously. On every
vendor update it builds the canonical model entities and publishes them
through the event bus; this seam decouples vendor timing from the rest of
the runtime. Connection failures are reported as error-level log events so
that the caller can retry Connect.
*/
package gateway

import (
	"time"

	"main/internal/event"
	"main/internal/model"
	"main/internal/model/enum"
)

// Gateway is the capability set of one trading back-end.
type Gateway interface {
	// Name identifies this instance; it is stamped on every record the
	// gateway produces.
	Name() string

	// Connect establishes the vendor session using opaque, gateway-specific
	// settings. It may be called again after a failure.
	Connect(settings map[string]string) error

	// Close tears the session down. Idempotent.
	Close() error

	// Subscribe requests market data for one instrument.
	Subscribe(req model.SubscribeRequest) error

	// SendOrder submits an order and returns the local order id immediately.
	// Acceptance or rejection arrives later as an order event.
	SendOrder(req model.OrderRequest) (string, error)

	// CancelOrder requests cancellation of an active order.
	CancelOrder(req model.CancelRequest) error

	// QueryAccount asks the vendor to push a fresh account snapshot.
	QueryAccount() error

	// QueryPosition asks the vendor to push fresh position snapshots.
	QueryPosition() error
}

// Base carries the gateway name and the bus, and publishes canonical
// entities. Implementations embed it.
type Base struct {
	name string
	bus  *event.Engine
}

// NewBase creates the shared gateway core.
func NewBase(name string, bus *event.Engine) Base {
	return Base{name: name, bus: bus}
}

func (b Base) Name() string {
	return b.name
}

// OnTick publishes a market data update.
func (b Base) OnTick(tick model.Tick) {
	tick.GatewayName = b.name
	b.bus.Publish(event.Event{Type: event.TypeTick, Data: tick})
}

// OnOrder publishes an order status transition.
func (b Base) OnOrder(order model.Order) {
	order.GatewayName = b.name
	b.bus.Publish(event.Event{Type: event.TypeOrder, Data: order})
}

// OnTrade publishes a fill.
func (b Base) OnTrade(trade model.Trade) {
	trade.GatewayName = b.name
	b.bus.Publish(event.Event{Type: event.TypeTrade, Data: trade})
}

// OnPosition publishes a broker-pushed position snapshot.
func (b Base) OnPosition(position model.Position) {
	position.GatewayName = b.name
	b.bus.Publish(event.Event{Type: event.TypePosition, Data: position})
}

// OnAccount publishes an account snapshot.
func (b Base) OnAccount(account model.Account) {
	account.GatewayName = b.name
	b.bus.Publish(event.Event{Type: event.TypeAccount, Data: account})
}

// OnContract publishes static instrument metadata.
func (b Base) OnContract(contract model.Contract) {
	contract.GatewayName = b.name
	b.bus.Publish(event.Event{Type: event.TypeContract, Data: contract})
}

// WriteLog publishes a diagnostic message on the bus.
func (b Base) WriteLog(level enum.LogLevel, msg string) {
	b.bus.Publish(event.Event{Type: event.TypeLog, Data: model.LogEntry{
		GatewayName: b.name,
		Msg:         msg,
		Level:       level,
		TsNano:      time.Now().UTC().UnixNano(),
	}})
}
