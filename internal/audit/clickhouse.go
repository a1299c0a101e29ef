package audit

import (
	"context"
	"crypto/tls"
	"sync/atomic"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

const (
	bufferSize    = 10_000
	flushInterval = 100 * time.Millisecond
	flushBatch    = 1000
	drainTimeout  = 2 * time.Second
)

// ClickHouseWriter appends execution records to ClickHouse asynchronously.
// Write() is non-blocking — records are buffered and batch-inserted in a
// background goroutine. A failed flush or a dropped record flips the
// degraded flag; the next successful flush clears it.
type ClickHouseWriter struct {
	conn     driver.Conn
	buffer   chan *ExecutionRecord
	done     chan struct{}
	flushed  chan struct{}
	degraded atomic.Bool
	logger   *zap.Logger
}

// NewClickHouseWriter creates a ClickHouseWriter and starts the background
// flush loop.
func NewClickHouseWriter(dsn string, logger *zap.Logger) (*ClickHouseWriter, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	w := &ClickHouseWriter{
		conn:    conn,
		buffer:  make(chan *ExecutionRecord, bufferSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		logger:  logger,
	}

	go w.flushLoop()
	return w, nil
}

// Write queues an execution record for async insertion.
// Non-blocking: drops the record if the buffer is full.
func (w *ClickHouseWriter) Write(record *ExecutionRecord) {
	select {
	case w.buffer <- record:
	default:
		w.degraded.Store(true)
		w.logger.Warn("audit buffer full, dropping record",
			zap.String("request_id", record.RequestID),
		)
	}
}

// Healthy reports whether the last flush succeeded and nothing was dropped.
func (w *ClickHouseWriter) Healthy() bool {
	return !w.degraded.Load()
}

// Close signals the flush loop to drain remaining records.
func (w *ClickHouseWriter) Close() {
	close(w.done)
	<-w.flushed
}

func (w *ClickHouseWriter) flushLoop() {
	defer close(w.flushed)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*ExecutionRecord, 0, flushBatch)

	for {
		select {
		case record := <-w.buffer:
			batch = append(batch, record)
			if len(batch) >= flushBatch {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-w.done:
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
		drainLoop:
			for {
				select {
				case record := <-w.buffer:
					batch = append(batch, record)
				case <-drainCtx.Done():
					break drainLoop
				default:
					break drainLoop
				}
			}
			if len(batch) > 0 {
				w.flush(batch)
			}
			return
		}
	}
}

func (w *ClickHouseWriter) flush(records []*ExecutionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batch, err := w.conn.PrepareBatch(ctx, `
		INSERT INTO execution_records (
			request_id, timestamp, client_id, tool_name, category,
			classification, outcome, reason, dry_run, read_only,
			duration_ms, depth
		)
	`)
	if err != nil {
		w.degraded.Store(true)
		w.logger.Error("audit prepare batch failed", zap.Error(err))
		return
	}

	for _, r := range records {
		var dryRunUint8, readOnlyUint8 uint8
		if r.DryRun {
			dryRunUint8 = 1
		}
		if r.ReadOnly {
			readOnlyUint8 = 1
		}

		if err := batch.Append(
			r.RequestID,
			r.Timestamp,
			r.ClientID,
			r.ToolName,
			r.Category,
			r.Classification,
			r.Outcome,
			r.Reason,
			dryRunUint8,
			readOnlyUint8,
			r.DurationMs,
			r.Depth,
		); err != nil {
			w.logger.Error("audit append record failed",
				zap.String("request_id", r.RequestID),
				zap.Error(err),
			)
		}
	}

	if err := batch.Send(); err != nil {
		w.degraded.Store(true)
		w.logger.Error("audit batch send failed",
			zap.Int("batch_size", len(records)),
			zap.Error(err),
		)
		return
	}
	w.degraded.Store(false)
}

// LogWriter is a fallback Writer for local development.
type LogWriter struct {
	logger *zap.Logger
}

// NewLogWriter creates a LogWriter that outputs records to the given logger.
func NewLogWriter(logger *zap.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

func (w *LogWriter) Write(record *ExecutionRecord) {
	w.logger.Info("execution_record",
		zap.String("request_id", record.RequestID),
		zap.String("client_id", record.ClientID),
		zap.String("tool_name", record.ToolName),
		zap.String("classification", record.Classification),
		zap.String("outcome", record.Outcome),
		zap.String("reason", record.Reason),
		zap.Bool("dry_run", record.DryRun),
		zap.Float64("duration_ms", record.DurationMs),
	)
}

func (w *LogWriter) Healthy() bool { return true }

func (w *LogWriter) Close() {}
