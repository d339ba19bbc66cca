package exception

import "github.com/yanun0323/errors"

// RPC errors
var (
	// ErrRPCTimeout is returned when no response arrives within the deadline.
	ErrRPCTimeout = errors.New("rpc: request timeout")

	ErrRPCNotConnected    = errors.New("rpc: client not connected")
	ErrRPCServerStopped   = errors.New("rpc: server stopped")
	ErrRPCUnknownMethod   = errors.New("rpc: unknown method")
	ErrRPCEmptyAddress    = errors.New("rpc: empty address")
	ErrRPCInvalidAddress  = errors.New("rpc: invalid address, want tcp://host:port or unix:///path")
	ErrRPCPathNotSocket   = errors.New("rpc: path exists and is not a socket")
	ErrRPCFrameTooLarge   = errors.New("rpc: frame exceeds size limit")
	ErrRPCAlreadyStarted  = errors.New("rpc: already started")
	ErrRPCDuplicateMethod = errors.New("rpc: method already registered")
)
