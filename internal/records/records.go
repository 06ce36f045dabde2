// Package records persists completed registrations as append-only rows
// of an external table and assigns each row its 1-based ordinal.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m3rciful/regbot/core/logger"
	"log/slog"
)

// StatusRegistered marks a successfully completed registration row.
const StatusRegistered = "✅ Ro'yxatdan o'tgan"

// ErrOrdinalTaken signals that another writer claimed the ordinal slot
// between the row-count read and the insert.
var ErrOrdinalTaken = errors.New("records: ordinal already taken")

// Record is one completed registration. Ordinal, Date, Time and Status
// are stamped by the sink at write time.
type Record struct {
	Ordinal     int    `db:"ordinal"`
	Name        string `db:"name"`
	District    string `db:"district"`
	Phone       string `db:"phone"`
	UserID      int64  `db:"user_id"`
	DisplayName string `db:"display_name"`
	Handle      string `db:"handle"`
	Date        string `db:"reg_date"`
	Time        string `db:"reg_time"`
	Status      string `db:"status"`
}

// Table is the raw tabular store primitive. Insert is conditional on the
// record's ordinal slot being free; the read-count-then-insert sequence
// is not atomic and callers that need uniqueness must retry on
// ErrOrdinalTaken.
type Table interface {
	RowCount(ctx context.Context) (int, error)
	Insert(ctx context.Context, rec Record) error
	ReadAll(ctx context.Context) ([]Record, error)
}

// Sink appends completed registrations, resolving ordinal conflicts
// with a bounded optimistic retry loop.
type Sink struct {
	table      Table
	maxRetries int
	now        func() time.Time
}

// SinkOption adjusts Sink construction.
type SinkOption func(*Sink)

// WithMaxRetries bounds the number of ordinal conflict retries.
func WithMaxRetries(n int) SinkOption {
	return func(s *Sink) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithClock overrides the write-time clock, for tests.
func WithClock(now func() time.Time) SinkOption {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSink wraps a Table with ordinal assignment.
func NewSink(table Table, opts ...SinkOption) *Sink {
	s := &Sink{
		table:      table,
		maxRetries: 5,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stamps the record with the next ordinal, the write-time date
// and time, and the registered status, then inserts it and returns the
// stamped row. On an ordinal conflict the count is re-read and the
// insert retried. Transport and auth failures surface as the returned
// error; the caller decides how to degrade.
func (s *Sink) Append(ctx context.Context, rec Record) (Record, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		count, err := s.table.RowCount(ctx)
		if err != nil {
			return Record{}, fmt.Errorf("records: row count: %w", err)
		}

		now := s.now()
		rec.Ordinal = count + 1
		rec.Date = now.Format("2006-01-02")
		rec.Time = now.Format("15:04:05")
		rec.Status = StatusRegistered

		err = s.table.Insert(ctx, rec)
		if err == nil {
			if attempt > 0 {
				logger.DB.Info("append retried",
					slog.String("event", "append.retry.success"),
					slog.Int("ordinal", rec.Ordinal),
					slog.Int("attempt", attempt+1),
				)
			}
			return rec, nil
		}
		if !errors.Is(err, ErrOrdinalTaken) {
			return Record{}, fmt.Errorf("records: insert: %w", err)
		}
		lastErr = err
		logger.DB.Warn("ordinal conflict",
			slog.String("event", "append.conflict"),
			slog.Int("ordinal", rec.Ordinal),
			slog.Int("attempt", attempt+1),
		)
	}
	return Record{}, fmt.Errorf("records: append gave up after %d retries: %w", s.maxRetries, lastErr)
}

// RowCount reports the number of stored registrations.
func (s *Sink) RowCount(ctx context.Context) (int, error) {
	return s.table.RowCount(ctx)
}

// ReadAll returns every stored registration in ordinal order.
func (s *Sink) ReadAll(ctx context.Context) ([]Record, error) {
	return s.table.ReadAll(ctx)
}
