// Package sqlite is a SQLite-backed RecordStore suitable for single-instance
// deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/voyagent/voyagent/internal/store"
	"github.com/voyagent/voyagent/internal/trip"
)

// Store is a SQLite implementation of store.RecordStore.
type Store struct {
	db *sql.DB
}

var _ store.RecordStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT NOT NULL,
			kind TEXT NOT NULL,
			trip_id TEXT,
			fields TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (kind, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_kind_trip ON records(kind, trip_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_created ON records(kind, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateRecord(ctx context.Context, rec *store.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, kind, trip_id, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.TripID, string(fields), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record %s/%s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, kind trip.Kind, id string) (*store.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, trip_id, fields, created_at, updated_at FROM records WHERE kind = ? AND id = ?`,
		string(kind), id,
	)
	return scanRecord(row)
}

func (s *Store) UpdateRecord(ctx context.Context, kind trip.Kind, id string, fields trip.Entity) (*store.Record, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET fields = ?, updated_at = ? WHERE kind = ? AND id = ?`,
		string(data), time.Now(), string(kind), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update record %s/%s: %w", kind, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetRecord(ctx, kind, id)
}

func (s *Store) ListRecords(ctx context.Context, kind trip.Kind, opts store.ListOptions) ([]*store.Record, error) {
	query := `SELECT id, kind, trip_id, fields, created_at, updated_at FROM records WHERE kind = ?`
	args := []any{string(kind)}

	if opts.TripID != "" {
		query += ` AND trip_id = ?`
		args = append(args, opts.TripID)
	}
	query += ` ORDER BY created_at, id`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	} else if opts.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var result []*store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*store.Record, error) {
	var rec store.Record
	var kind, fields string
	var tripID sql.NullString

	err := row.Scan(&rec.ID, &kind, &tripID, &fields, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.Kind = trip.Kind(kind)
	rec.TripID = tripID.String
	if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record fields: %w", err)
	}
	return &rec, nil
}
