package evidence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS evidence (
	id TEXT PRIMARY KEY,
	time INTEGER NOT NULL,
	context TEXT NOT NULL,
	op TEXT NOT NULL,
	input_frame TEXT NOT NULL,
	output_frame TEXT NOT NULL,
	outcome TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_evidence_time ON evidence(time);
`

// SQLiteStorage persists records in a SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (and if needed initializes) the database at path.
// WAL mode keeps appends from blocking readers.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening evidence database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing evidence schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Append stores one record.
func (s *SQLiteStorage) Append(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evidence (id, time, context, op, input_frame, output_frame, outcome, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Time.UnixNano(), rec.Context.String(), rec.Op,
		rec.InputFrame.String(), rec.OutputFrame.String(), string(rec.Outcome), rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("appending evidence: %w", err)
	}
	return nil
}

// List returns records at or after since, oldest first.
func (s *SQLiteStorage) List(ctx context.Context, since time.Time) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, time, context, op, input_frame, output_frame, outcome, detail
		 FROM evidence WHERE time >= ? ORDER BY time ASC`,
		since.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing evidence: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			rec                    Record
			id, ctxID, inID, outID string
			ns                     int64
			outcome                string
		)
		if err := rows.Scan(&id, &ns, &ctxID, &rec.Op, &inID, &outID, &outcome, &rec.Detail); err != nil {
			return nil, fmt.Errorf("scanning evidence: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing evidence id: %w", err)
		}
		if rec.Context, err = uuid.Parse(ctxID); err != nil {
			return nil, fmt.Errorf("parsing evidence context: %w", err)
		}
		if rec.InputFrame, err = uuid.Parse(inID); err != nil {
			return nil, fmt.Errorf("parsing evidence input frame: %w", err)
		}
		if rec.OutputFrame, err = uuid.Parse(outID); err != nil {
			return nil, fmt.Errorf("parsing evidence output frame: %w", err)
		}
		rec.Time = time.Unix(0, ns)
		rec.Outcome = Outcome(outcome)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// PruneBefore deletes records older than cutoff.
func (s *SQLiteStorage) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evidence WHERE time < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning evidence: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
