package enum

import "time"

// BarInterval is the sampling interval of an aggregated bar.
type BarInterval uint8

const (
	_bar_interval_beg BarInterval = iota
	BarIntervalMinute
	BarIntervalHour
	BarIntervalDaily
	_bar_interval_end
)

func (i BarInterval) IsAvailable() bool {
	return i > _bar_interval_beg && i < _bar_interval_end
}

// Duration is the wall-clock span of one bar.
func (i BarInterval) Duration() time.Duration {
	switch i {
	case BarIntervalMinute:
		return time.Minute
	case BarIntervalHour:
		return time.Hour
	case BarIntervalDaily:
		return 24 * time.Hour
	default:
		return 0
	}
}

func (i BarInterval) String() string {
	switch i {
	case BarIntervalMinute:
		return "1m"
	case BarIntervalHour:
		return "1h"
	case BarIntervalDaily:
		return "1d"
	default:
		return "unknown"
	}
}
