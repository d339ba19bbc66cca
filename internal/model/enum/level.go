package enum

// LogLevel is the severity of a runtime log entry.
type LogLevel uint8

const (
	_log_level_beg LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	_log_level_end
)

func (l LogLevel) IsAvailable() bool {
	return l > _log_level_beg && l < _log_level_end
}

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarning:
		return "warning"
	case LogLevelError:
		return "error"
	default:
		return "unknown"
	}
}
