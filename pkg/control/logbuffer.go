package control

import (
	"sync"
	"time"

	"github.com/marmos91/dittoftp/internal/logger"
)

// LogRecord is one buffered log entry with a monotonically increasing
// sequence number, so pollers can ask for everything after the last one seen.
type LogRecord struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// LogBuffer keeps the most recent log entries in a fixed-size ring.
type LogBuffer struct {
	mu      sync.Mutex
	records []LogRecord
	next    int
	full    bool
	seq     uint64

	unsubscribe func()
}

// NewLogBuffer creates a ring holding up to size records. It does not
// receive anything until Attach is called.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 500
	}
	return &LogBuffer{records: make([]LogRecord, size)}
}

// Attach subscribes the buffer to the process logger. Debug entries are not
// buffered.
func (b *LogBuffer) Attach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsubscribe != nil {
		return
	}
	b.unsubscribe = logger.Subscribe(func(e logger.Entry) {
		if e.Level < logger.LevelInfo {
			return
		}
		b.Add(e.Time, e.LevelName(), e.Message)
	})
}

// Detach stops receiving log entries.
func (b *LogBuffer) Detach() {
	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Add appends a record, evicting the oldest when full.
func (b *LogBuffer) Add(t time.Time, level, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	b.records[b.next] = LogRecord{Seq: b.seq, Time: t, Level: level, Message: message}
	b.next = (b.next + 1) % len(b.records)
	if b.next == 0 {
		b.full = true
	}
}

// Since returns buffered records with Seq > seq, oldest first.
func (b *LogBuffer) Since(seq uint64) []LogRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ordered []LogRecord
	if b.full {
		ordered = append(ordered, b.records[b.next:]...)
	}
	ordered = append(ordered, b.records[:b.next]...)

	out := make([]LogRecord, 0, len(ordered))
	for _, r := range ordered {
		if r.Seq > seq {
			out = append(out, r)
		}
	}
	return out
}
