package enum

type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "limit"
	case OrderTypeMarket:
		return "market"
	default:
		return "unknown"
	}
}

// Product is the contract product class.
type Product uint8

const (
	_product_beg Product = iota
	ProductEquity
	ProductFutures
	ProductSpot
	_product_end
)

func (p Product) IsAvailable() bool {
	return p > _product_beg && p < _product_end
}

func (p Product) String() string {
	switch p {
	case ProductEquity:
		return "equity"
	case ProductFutures:
		return "futures"
	case ProductSpot:
		return "spot"
	default:
		return "unknown"
	}
}
