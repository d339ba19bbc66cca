package enum

// Status tracks the lifecycle of an order.
type Status uint8

const (
	_status_beg Status = iota
	StatusSubmitting
	StatusNotTraded
	StatusPartTraded
	StatusAllTraded
	StatusCancelled
	StatusRejected
	_status_end
)

func (s Status) IsAvailable() bool {
	return s > _status_beg && s < _status_end
}

// IsActive reports whether further transitions are possible.
func (s Status) IsActive() bool {
	switch s {
	case StatusSubmitting, StatusNotTraded, StatusPartTraded:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusSubmitting:
		return "submitting"
	case StatusNotTraded:
		return "not_traded"
	case StatusPartTraded:
		return "part_traded"
	case StatusAllTraded:
		return "all_traded"
	case StatusCancelled:
		return "cancelled"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}
