package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS weight_samples (
        sampled_at   TIMESTAMPTZ PRIMARY KEY,
        total_weight NUMERIC     NOT NULL,
        item_count   INTEGER     NOT NULL,
        status       TEXT        NOT NULL,
        error        TEXT
    );
    CREATE TABLE IF NOT EXISTS inventory_events (
        id              BIGSERIAL   PRIMARY KEY,
        kind            TEXT        NOT NULL,
        item            TEXT        NOT NULL DEFAULT '',
        delta           NUMERIC     NOT NULL DEFAULT 0,
        previous_amount NUMERIC     NOT NULL DEFAULT 0,
        current_amount  NUMERIC     NOT NULL DEFAULT 0,
        total_weight    NUMERIC     NOT NULL,
        max_weight      NUMERIC     NOT NULL,
        delivered       BOOLEAN     NOT NULL,
        error           TEXT,
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS inventory_events_created_at_idx ON inventory_events (created_at);`

	insertSampleSQL = `INSERT INTO weight_samples (
        sampled_at,
        total_weight,
        item_count,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (sampled_at) DO UPDATE
    SET
        total_weight = EXCLUDED.total_weight,
        item_count   = EXCLUDED.item_count,
        status       = EXCLUDED.status,
        error        = EXCLUDED.error;`

	listSamplesBetweenSQL = `SELECT
        sampled_at,
        total_weight::text,
        item_count,
        status,
        error
    FROM weight_samples
    WHERE sampled_at >= $1
      AND sampled_at < $2
    ORDER BY sampled_at;`

	countSamplesSQL = `SELECT COUNT(*) FROM weight_samples;`

	insertEventSQL = `INSERT INTO inventory_events (
        kind,
        item,
        delta,
        previous_amount,
        current_amount,
        total_weight,
        max_weight,
        delivered,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    RETURNING id, created_at;`

	listRecentEventsSQL = `SELECT
        id,
        kind,
        item,
        delta::text,
        previous_amount::text,
        current_amount::text,
        total_weight::text,
        max_weight::text,
        delivered,
        error,
        created_at
    FROM inventory_events
    ORDER BY created_at DESC, id DESC
    LIMIT $1;`

	deleteEventsBeforeSQL = `DELETE FROM inventory_events WHERE created_at < $1;`
)

// SampleStore defines operations for weight sample persistence.
type SampleStore interface {
	RecordSample(ctx context.Context, sample WeightSample) error
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]WeightSample, error)
	CountSamples(ctx context.Context) (int64, error)
}

// EventStore defines operations for the event journal.
type EventStore interface {
	InsertEvent(ctx context.Context, ev EventRecord) (EventRecord, error)
	ListRecentEvents(ctx context.Context, limit int) ([]EventRecord, error)
	DeleteEventsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// Store aggregates access to weight samples and events.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the journal tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// RecordSample persists or updates a weight sample.
func (s *Store) RecordSample(ctx context.Context, sample WeightSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if sample.Error != nil {
		errMsg = *sample.Error
	}

	_, execErr := pool.Exec(ctx, insertSampleSQL,
		sample.SampledAt,
		sample.TotalWeight.String(),
		sample.ItemCount,
		sample.Status,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("record weight sample: %w", execErr)
	}
	return nil
}

// ListSamplesBetween lists samples within a time window.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]WeightSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]WeightSample, 0)
	for rows.Next() {
		sample, scanErr := scanSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// CountSamples counts stored samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSamplesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count samples: %w", scanErr)
	}
	return count, nil
}

// InsertEvent appends an event to the journal.
func (s *Store) InsertEvent(ctx context.Context, ev EventRecord) (EventRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return EventRecord{}, err
	}

	var errMsg interface{}
	if ev.Error != nil {
		errMsg = *ev.Error
	}

	row := pool.QueryRow(ctx, insertEventSQL,
		ev.Kind,
		ev.Item,
		ev.Delta.String(),
		ev.Previous.String(),
		ev.Current.String(),
		ev.TotalWeight.String(),
		ev.MaxWeight.String(),
		ev.Delivered,
		errMsg,
	)
	if scanErr := row.Scan(&ev.ID, &ev.CreatedAt); scanErr != nil {
		return EventRecord{}, fmt.Errorf("insert event: %w", scanErr)
	}
	return ev, nil
}

// ListRecentEvents lists the newest events first.
func (s *Store) ListRecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent events: %w", queryErr)
	}
	defer rows.Close()

	events := make([]EventRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}

// DeleteEventsBefore prunes the journal and reports how many rows went.
func (s *Store) DeleteEventsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, execErr := pool.Exec(ctx, deleteEventsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete events before: %w", execErr)
	}
	return tag.RowsAffected(), nil
}

func scanSample(rows pgx.Rows) (WeightSample, error) {
	var (
		sampledAt time.Time
		totalStr  string
		itemCount int
		status    string
		errMsg    sql.NullString
	)
	if err := rows.Scan(&sampledAt, &totalStr, &itemCount, &status, &errMsg); err != nil {
		return WeightSample{}, err
	}

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return WeightSample{}, fmt.Errorf("parse total weight: %w", err)
	}

	sample := WeightSample{
		SampledAt:   sampledAt,
		TotalWeight: total,
		ItemCount:   itemCount,
		Status:      status,
	}
	if errMsg.Valid {
		msg := errMsg.String
		sample.Error = &msg
	}
	return sample, nil
}

func scanEvent(rows pgx.Rows) (EventRecord, error) {
	var (
		rec                                  EventRecord
		deltaStr, prevStr, currStr, totalStr string
		maxStr                               string
		errMsg                               sql.NullString
	)
	if err := rows.Scan(
		&rec.ID,
		&rec.Kind,
		&rec.Item,
		&deltaStr,
		&prevStr,
		&currStr,
		&totalStr,
		&maxStr,
		&rec.Delivered,
		&errMsg,
		&rec.CreatedAt,
	); err != nil {
		return EventRecord{}, err
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"delta", deltaStr, &rec.Delta},
		{"previous amount", prevStr, &rec.Previous},
		{"current amount", currStr, &rec.Current},
		{"total weight", totalStr, &rec.TotalWeight},
		{"max weight", maxStr, &rec.MaxWeight},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return EventRecord{}, fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = v
	}

	if errMsg.Valid {
		msg := errMsg.String
		rec.Error = &msg
	}
	return rec, nil
}
