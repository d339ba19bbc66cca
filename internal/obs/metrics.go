package obs

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and latency stats for the runtime.
type Metrics struct {
	mu          sync.RWMutex
	eventCounts map[string]uint64

	queueDrops  uint64
	queueClosed uint64
	riskRejects uint64

	dispatchLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts     map[string]uint64
	QueueDrops      uint64
	QueueClosed     uint64
	RiskRejects     uint64
	DispatchLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{eventCounts: make(map[string]uint64)}
}

// ObserveEvent counts one dispatched event and tracks queue-to-handler latency.
func (m *Metrics) ObserveEvent(eventType string, enqueued time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.eventCounts[eventType]++
	m.mu.Unlock()
	if !enqueued.IsZero() {
		m.dispatchLatency.Observe(time.Since(enqueued))
	}
}

// IncQueueDrop records a dropped publish on a full queue.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a publish attempt after stop.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncRiskReject records an order rejected by pre-trade checks.
func (m *Metrics) IncRiskReject() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.riskRejects, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	eventCounts := make(map[string]uint64, len(m.eventCounts))
	for k, v := range m.eventCounts {
		eventCounts[k] = v
	}
	m.mu.RUnlock()
	return Snapshot{
		EventCounts:     eventCounts,
		QueueDrops:      atomic.LoadUint64(&m.queueDrops),
		QueueClosed:     atomic.LoadUint64(&m.queueClosed),
		RiskRejects:     atomic.LoadUint64(&m.riskRejects),
		DispatchLatency: m.dispatchLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
