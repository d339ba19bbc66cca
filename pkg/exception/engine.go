package exception

import "github.com/yanun0323/errors"

var (
	ErrEngineNotFound  = errors.New("engine: not found")
	ErrEngineDuplicate = errors.New("engine: already registered")
	ErrEngineClosed    = errors.New("engine: closed")
	ErrRiskRejected    = errors.New("engine: order rejected by risk checks")
)
