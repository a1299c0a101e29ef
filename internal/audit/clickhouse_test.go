package audit

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func testRecord(id string) *ExecutionRecord {
	return &ExecutionRecord{
		RequestID: id,
		Timestamp: time.Now(),
		ToolName:  "echo",
		Outcome:   OutcomeSucceeded,
	}
}

// Write must never block: once the buffer is full, records are dropped and
// the sink reports degraded instead of stalling the request path.
func TestClickHouseWriter_DropOnFullBufferDegrades(t *testing.T) {
	w := &ClickHouseWriter{
		buffer: make(chan *ExecutionRecord, 2),
		logger: zap.NewNop(),
	}
	// No flush loop running, so the buffer only fills.

	w.Write(testRecord("r1"))
	w.Write(testRecord("r2"))
	if !w.Healthy() {
		t.Fatal("writer should be healthy while the buffer has room")
	}

	done := make(chan struct{})
	go func() {
		w.Write(testRecord("r3")) // buffer full: dropped, not blocked
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked on a full buffer")
	}

	if w.Healthy() {
		t.Fatal("dropped record must flip the degraded flag")
	}
}

func TestLogWriter_AlwaysHealthy(t *testing.T) {
	w := NewLogWriter(zap.NewNop())
	w.Write(testRecord("r1"))
	if !w.Healthy() {
		t.Fatal("log writer has no failure mode to report")
	}
	w.Close()
}
