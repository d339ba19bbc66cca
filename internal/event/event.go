package event

// Reserved event type namespace. Consumers subscribe by these exact strings;
// the same strings name broadcast topics on the RPC channel.
const (
	TypeTick     = "tick"
	TypeBar      = "bar"
	TypeOrder    = "order"
	TypeTrade    = "trade"
	TypePosition = "position"
	TypeAccount  = "account"
	TypeContract = "contract"
	TypeLog      = "log"

	// TypeTimer is produced by the engine's own timer at a fixed interval.
	TypeTimer = "timer"
)

// Event is the immutable message envelope passed through the bus.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Handler consumes one event. Handlers run on the single dispatch goroutine
// and must not block; long work belongs on the handler's own goroutine.
type Handler func(Event)
