package exception

import "github.com/yanun0323/errors"

var (
	ErrGatewayNotFound         = errors.New("gateway: not found")
	ErrGatewayDuplicate        = errors.New("gateway: already registered")
	ErrGatewayNotConnected     = errors.New("gateway: not connected")
	ErrGatewayOrderUnsupported = errors.New("gateway: order operations unsupported")
	ErrGatewayInvalidRequest   = errors.New("gateway: invalid request")
	ErrGatewayUnknownContract  = errors.New("gateway: unknown contract")
)
