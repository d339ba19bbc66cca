package enum

type Direction uint8

const (
	_direction_beg Direction = iota
	DirectionLong
	DirectionShort
	DirectionNet
	_direction_end
)

func (d Direction) IsAvailable() bool {
	return d > _direction_beg && d < _direction_end
}

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "long"
	case DirectionShort:
		return "short"
	case DirectionNet:
		return "net"
	default:
		return "unknown"
	}
}

// Opposite returns the netting counterpart of a direction.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return d
	}
}

// Offset marks whether an order opens or closes a position.
type Offset uint8

const (
	_offset_beg Offset = iota
	OffsetOpen
	OffsetClose
	_offset_end
)

func (o Offset) IsAvailable() bool {
	return o > _offset_beg && o < _offset_end
}

func (o Offset) String() string {
	switch o {
	case OffsetOpen:
		return "open"
	case OffsetClose:
		return "close"
	default:
		return "unknown"
	}
}
