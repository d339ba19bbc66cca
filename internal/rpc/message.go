package rpc

import "time"

// HeartbeatTopic is reserved on the broadcast channel. The server emits an
// empty packet on it at a fixed interval so clients can detect a dead link
// without any request traffic.
const HeartbeatTopic = "_heartbeat_"

const (
	// DefaultHeartbeatInterval is the server-side emission period.
	DefaultHeartbeatInterval = time.Second

	// DefaultHeartbeatTolerance is how long a client waits past the last
	// heartbeat before reporting the connection lost.
	DefaultHeartbeatTolerance = 3 * DefaultHeartbeatInterval

	// DefaultCallTimeout bounds a Call when the caller passes none.
	DefaultCallTimeout = 3 * time.Second

	// DefaultDialTimeout bounds Connect.
	DefaultDialTimeout = 3 * time.Second
)

// Request is one command or query on the request/response channel.
type Request struct {
	Seq    uint64         `json:"seq"`
	Method string         `json:"method"`
	Args   []any          `json:"args,omitempty"`
	KWArgs map[string]any `json:"kwargs,omitempty"`
}

// Response answers exactly one Request, matched by Seq.
type Response struct {
	Seq     uint64 `json:"seq"`
	Success bool   `json:"success"`
	Value   any    `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Packet is one broadcast message.
type Packet struct {
	Topic string `json:"topic"`
	Data  any    `json:"data,omitempty"`
}

// RemoteError reports a failure that happened on the server side of a call.
// It is distinct from a timeout: the server was reached and answered.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	return "rpc: remote error calling " + e.Method + ": " + e.Message
}
