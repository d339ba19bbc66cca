package exception

import "github.com/yanun0323/errors"

var (
	ErrOMSUnknownOrder     = errors.New("oms: order not found")
	ErrOMSTerminalOrder    = errors.New("oms: order already in terminal status")
	ErrOMSOrphanTrade      = errors.New("oms: trade references unknown order")
	ErrOMSInvalidTradeSize = errors.New("oms: trade volume must be positive")
)
