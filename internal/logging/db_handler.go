package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	batchSize     = 50
	flushInterval = 5 * time.Second
)

// DBHandler is an slog.Handler that batches ERROR+ records into the
// system_logs table. Handlers derived through WithAttrs share one buffer.
type DBHandler struct {
	sink  *logSink
	attrs []slog.Attr
}

type logSink struct {
	db       *gorm.DB
	mu       sync.Mutex
	buffer   []models.SystemLog
	ticker   *time.Ticker
	done     chan struct{}
	stopped  sync.WaitGroup
	stopOnce sync.Once
	// fallback receives flush failures; logging them through slog would
	// feed them back into this handler.
	fallback *slog.Logger
}

func NewDBHandler(db *gorm.DB) *DBHandler {
	sink := &logSink{
		db:       db,
		buffer:   make([]models.SystemLog, 0, batchSize),
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		fallback: slog.New(slog.NewJSONHandler(os.Stderr, nil)),
	}
	sink.stopped.Add(1)
	go sink.flushLoop()
	return &DBHandler{sink: sink}
}

func (s *logSink) flushLoop() {
	defer s.stopped.Done()
	for {
		select {
		case <-s.ticker.C:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *logSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, batchSize)
	s.mu.Unlock()

	if err := s.db.CreateInBatches(batch, batchSize).Error; err != nil {
		s.fallback.Error("failed to flush system logs", "error", err, "count", len(batch))
	}
}

// Stop flushes what is buffered and ends the background loop. It is safe to
// call more than once.
func (h *DBHandler) Stop() {
	h.sink.stopOnce.Do(func() {
		h.sink.ticker.Stop()
		close(h.sink.done)
	})
	h.sink.stopped.Wait()
}

// Enabled only handles ERROR and above.
func (h *DBHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *DBHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.NewString(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]interface{})
	apply := func(a slog.Attr) bool {
		liftAttr(&entry, extra, a)
		return true
	}
	for _, a := range h.attrs {
		apply(a)
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.sink.mu.Lock()
	h.sink.buffer = append(h.sink.buffer, entry)
	needFlush := len(h.sink.buffer) >= batchSize
	h.sink.mu.Unlock()

	if needFlush {
		go h.sink.flush()
	}
	return nil
}

// liftAttr moves the well-known request attributes into their columns and
// everything else into extra.
func liftAttr(entry *models.SystemLog, extra map[string]interface{}, a slog.Attr) {
	v := a.Value.Resolve()
	switch a.Key {
	case "request_id":
		entry.RequestID = v.String()
	case "user_id":
		if id, ok := asUint(v); ok {
			entry.UserID = &id
		}
	case "action":
		entry.Action = v.String()
	case "error":
		entry.Error = v.String()
	case "latency_ms":
		switch v.Kind() {
		case slog.KindInt64:
			entry.LatencyMs = int(v.Int64())
		case slog.KindFloat64:
			entry.LatencyMs = int(v.Float64() + 0.5)
		case slog.KindDuration:
			entry.LatencyMs = int(v.Duration().Milliseconds())
		}
	default:
		if v.Kind() == slog.KindAny {
			if err, ok := v.Any().(error); ok {
				extra[a.Key] = err.Error()
				return
			}
		}
		extra[a.Key] = v.Any()
	}
}

func asUint(v slog.Value) (uint, bool) {
	switch v.Kind() {
	case slog.KindUint64:
		return uint(v.Uint64()), true
	case slog.KindInt64:
		if v.Int64() >= 0 {
			return uint(v.Int64()), true
		}
	case slog.KindString:
		var id uint
		if _, err := fmt.Sscan(v.String(), &id); err == nil {
			return id, true
		}
	}
	return 0, false
}

func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &DBHandler{sink: h.sink, attrs: merged}
}

// WithGroup is a no-op: grouped attrs land in extra under their own keys.
func (h *DBHandler) WithGroup(string) slog.Handler {
	return h
}
