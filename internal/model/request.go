package model

import (
	"time"

	"main/internal/model/enum"
	"main/pkg/exception"
)

// OrderRequest asks a gateway to place one order.
type OrderRequest struct {
	Symbol    string         `json:"symbol"`
	Exchange  string         `json:"exchange"`
	Direction enum.Direction `json:"direction"`
	Offset    enum.Offset    `json:"offset"`
	Type      enum.OrderType `json:"type"`
	Price     float64        `json:"price"`
	Volume    float64        `json:"volume"`
}

// Validate checks request fields before the gateway sees them.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" || r.Exchange == "" {
		return exception.ErrGatewayInvalidRequest
	}
	if !r.Direction.IsAvailable() || !r.Type.IsAvailable() {
		return exception.ErrGatewayInvalidRequest
	}
	if r.Volume <= 0 {
		return exception.ErrGatewayInvalidRequest
	}
	if r.Type == enum.OrderTypeLimit && r.Price <= 0 {
		return exception.ErrGatewayInvalidRequest
	}
	return nil
}

func (r OrderRequest) InstrumentKey() string {
	return InstrumentKey(r.Symbol, r.Exchange)
}

// CreateOrder materializes the submitting-state order a gateway reports
// right after accepting the request.
func (r OrderRequest) CreateOrder(gatewayName, orderID string) Order {
	offset := r.Offset
	if !offset.IsAvailable() {
		offset = enum.OffsetOpen
	}
	return Order{
		GatewayName: gatewayName,
		OrderID:     orderID,
		Symbol:      r.Symbol,
		Exchange:    r.Exchange,
		Direction:   r.Direction,
		Offset:      offset,
		Type:        r.Type,
		Price:       r.Price,
		Volume:      r.Volume,
		Status:      enum.StatusSubmitting,
		TsNano:      time.Now().UTC().UnixNano(),
	}
}

// CancelRequest asks a gateway to cancel an active order.
type CancelRequest struct {
	OrderID  string `json:"orderId"`
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

func (r CancelRequest) Validate() error {
	if r.OrderID == "" {
		return exception.ErrGatewayInvalidRequest
	}
	return nil
}

// SubscribeRequest asks a gateway for market data of one instrument.
type SubscribeRequest struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

func (r SubscribeRequest) Validate() error {
	if r.Symbol == "" || r.Exchange == "" {
		return exception.ErrGatewayInvalidRequest
	}
	return nil
}

func (r SubscribeRequest) InstrumentKey() string {
	return InstrumentKey(r.Symbol, r.Exchange)
}
