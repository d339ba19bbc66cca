package exception

import "github.com/yanun0323/errors"

// Event engine errors
var (
	ErrEventEngineStopped    = errors.New("event: engine stopped")
	ErrEventEngineNotStarted = errors.New("event: engine not started")
	ErrEventQueueFull        = errors.New("event: queue full")
	ErrEventNilHandler       = errors.New("event: nil handler")
	ErrEventEmptyType        = errors.New("event: empty type")
)
