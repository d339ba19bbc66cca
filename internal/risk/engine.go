package risk

import (
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/oms"
	"main/pkg/exception"
)

// EngineName is the registry name of the pre-trade checker.
const EngineName = "risk"

// Config defines simple pre-trade limits. Zero values disable a check.
type Config struct {
	KillSwitch       bool    `json:"killSwitch"`
	MaxOrderVolume   float64 `json:"maxOrderVolume"`
	MaxOrderNotional float64 `json:"maxOrderNotional"`
	MaxPosition      float64 `json:"maxPosition"`
}

// Engine rejects order requests that violate static limits before they
// reach a gateway.
type Engine struct {
	cfg     Config
	repo    *oms.Engine
	metrics *obs.Metrics
}

// New creates a pre-trade checker reading positions from the repository.
func New(cfg Config, repo *oms.Engine, metrics *obs.Metrics) *Engine {
	return &Engine{cfg: cfg, repo: repo, metrics: metrics}
}

func (e *Engine) Name() string {
	return EngineName
}

func (e *Engine) Close() error {
	return nil
}

// Check validates one order request against the configured limits.
func (e *Engine) Check(req model.OrderRequest) error {
	if e.cfg.KillSwitch {
		e.metrics.IncRiskReject()
		return errors.Wrap(exception.ErrRiskRejected, "kill switch engaged")
	}

	if e.cfg.MaxOrderVolume > 0 && req.Volume > e.cfg.MaxOrderVolume {
		e.metrics.IncRiskReject()
		return errors.Wrap(exception.ErrRiskRejected, "volume above limit")
	}

	if e.cfg.MaxOrderNotional > 0 && req.Type == enum.OrderTypeLimit {
		if req.Price*req.Volume > e.cfg.MaxOrderNotional {
			e.metrics.IncRiskReject()
			return errors.Wrap(exception.ErrRiskRejected, "notional above limit")
		}
	}

	if e.cfg.MaxPosition > 0 && e.repo != nil {
		if next := e.projectedPosition(req); next > e.cfg.MaxPosition {
			e.metrics.IncRiskReject()
			return errors.Wrap(exception.ErrRiskRejected, "position limit exceeded")
		}
	}
	return nil
}

// projectedPosition estimates the absolute net position after the order
// fills completely.
func (e *Engine) projectedPosition(req model.OrderRequest) float64 {
	var net float64
	if pos, ok := e.repo.GetPosition(req.InstrumentKey() + "." + enum.DirectionLong.String()); ok {
		net += pos.Volume
	}
	if pos, ok := e.repo.GetPosition(req.InstrumentKey() + "." + enum.DirectionShort.String()); ok {
		net -= pos.Volume
	}
	if req.Direction == enum.DirectionShort {
		net -= req.Volume
	} else {
		net += req.Volume
	}
	if net < 0 {
		return -net
	}
	return net
}
