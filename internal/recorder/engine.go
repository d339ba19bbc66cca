// Package recorder persists trades and runtime logs to PostgreSQL. Rows
// are buffered and flushed on the bus timer so the hot path never waits on
// the database.
package recorder

import (
	"sync"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/event"
	"main/internal/model"
	"main/pkg/conn"
)

// EngineName is the registry name on the orchestrator.
const EngineName = "recorder"

// Config controls the persistence engine.
type Config struct {
	// Database is the PostgreSQL target.
	Database conn.Config `json:"database"`
	// BatchSize forces a flush when the buffer reaches it. Defaults to 200.
	BatchSize int `json:"batchSize"`
}

const defaultBatchSize = 200

// TradeRecord is one persisted fill.
type TradeRecord struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement"`
	GatewayName string  `gorm:"size:64;index"`
	TradeID     string  `gorm:"size:64;uniqueIndex:idx_trade_records_key"`
	OrderID     string  `gorm:"size:64;index"`
	Symbol      string  `gorm:"size:64;index"`
	Exchange    string  `gorm:"size:64"`
	Direction   string  `gorm:"size:8"`
	Offset      string  `gorm:"size:8"`
	Price       float64 `gorm:"type:numeric"`
	Volume      float64 `gorm:"type:numeric"`
	TsNano      int64   `gorm:"index"`
}

// LogRecord is one persisted runtime log entry.
type LogRecord struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	GatewayName string `gorm:"size:64;index"`
	Level       string `gorm:"size:16"`
	Msg         string `gorm:"type:text"`
	TsNano      int64  `gorm:"index"`
}

// Engine buffers trade and log events and writes them in batches: on each
// timer event, when the buffer fills, and finally on Close.
type Engine struct {
	cfg    Config
	bus    *event.Engine
	client *conn.Client

	mu     sync.Mutex
	trades []TradeRecord
	logEs  []LogRecord
}

// New connects, migrates the two tables, and subscribes to trade, log and
// timer events.
func New(bus *event.Engine, cfg Config) (*Engine, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	client, err := conn.New(cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, "open recorder database")
	}
	if err := client.DB().AutoMigrate(&TradeRecord{}, &LogRecord{}); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "migrate recorder tables")
	}

	e := &Engine{cfg: cfg, bus: bus, client: client}
	bus.Subscribe(event.TypeTrade, e.processTrade)
	bus.Subscribe(event.TypeLog, e.processLog)
	bus.Subscribe(event.TypeTimer, e.processTimer)
	return e, nil
}

func (e *Engine) Name() string {
	return EngineName
}

// Close flushes the buffers and closes the pool.
func (e *Engine) Close() error {
	e.bus.Unsubscribe(event.TypeTrade, e.processTrade)
	e.bus.Unsubscribe(event.TypeLog, e.processLog)
	e.bus.Unsubscribe(event.TypeTimer, e.processTimer)
	e.Flush()
	return e.client.Close()
}

// Flush writes everything buffered so far.
func (e *Engine) Flush() {
	e.mu.Lock()
	trades := e.trades
	logEntries := e.logEs
	e.trades = nil
	e.logEs = nil
	e.mu.Unlock()

	if len(trades) > 0 {
		if err := e.client.DB().Create(&trades).Error; err != nil {
			logs.Errorf("recorder: persist %d trades: %+v", len(trades), err)
		}
	}
	if len(logEntries) > 0 {
		if err := e.client.DB().Create(&logEntries).Error; err != nil {
			logs.Errorf("recorder: persist %d logs: %+v", len(logEntries), err)
		}
	}
}

func (e *Engine) processTrade(ev event.Event) {
	trade, ok := ev.Data.(model.Trade)
	if !ok {
		return
	}
	e.mu.Lock()
	e.trades = append(e.trades, newTradeRecord(trade))
	full := len(e.trades) >= e.cfg.BatchSize
	e.mu.Unlock()
	if full {
		go e.Flush()
	}
}

func (e *Engine) processLog(ev event.Event) {
	entry, ok := ev.Data.(model.LogEntry)
	if !ok {
		return
	}
	e.mu.Lock()
	e.logEs = append(e.logEs, newLogRecord(entry))
	full := len(e.logEs) >= e.cfg.BatchSize
	e.mu.Unlock()
	if full {
		go e.Flush()
	}
}

func newTradeRecord(trade model.Trade) TradeRecord {
	return TradeRecord{
		GatewayName: trade.GatewayName,
		TradeID:     trade.TradeID,
		OrderID:     trade.OrderID,
		Symbol:      trade.Symbol,
		Exchange:    trade.Exchange,
		Direction:   trade.Direction.String(),
		Offset:      trade.Offset.String(),
		Price:       trade.Price,
		Volume:      trade.Volume,
		TsNano:      trade.TsNano,
	}
}

func newLogRecord(entry model.LogEntry) LogRecord {
	return LogRecord{
		GatewayName: entry.GatewayName,
		Level:       entry.Level.String(),
		Msg:         entry.Msg,
		TsNano:      entry.TsNano,
	}
}

func (e *Engine) processTimer(event.Event) {
	go e.Flush()
}
