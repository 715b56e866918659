// Package history persists prediction outcomes and API keys in SQLite.
package history

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS predictions (
  prediction_id TEXT PRIMARY KEY,
  created_at DATETIME NOT NULL,
  source TEXT NOT NULL,
  label TEXT NOT NULL DEFAULT '',
  class INTEGER,
  features TEXT NOT NULL DEFAULT '',
  sample_sha256 TEXT NOT NULL DEFAULT '',
  sample_size INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT '',
  key_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS predictions_created_at ON predictions(created_at);

CREATE TABLE IF NOT EXISTS api_keys (
  key_id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  hashed_secret TEXT NOT NULL,
  created_at DATETIME NOT NULL,
  last_used_at DATETIME
);
`)
	return err
}

// Prediction is one row of the audit trail. Class is nil when the request
// failed before the predictor produced an output.
type Prediction struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Source       string    `json:"source"`
	Label        string    `json:"label,omitempty"`
	Class        *int64    `json:"class,omitempty"`
	Features     string    `json:"features,omitempty"`
	SampleSHA256 string    `json:"sample_sha256,omitempty"`
	SampleSize   int64     `json:"sample_size,omitempty"`
	Error        string    `json:"error,omitempty"`
	KeyID        string    `json:"key_id,omitempty"`
}

func (s *Store) RecordPrediction(ctx context.Context, p Prediction) error {
	if s == nil || s.db == nil {
		return nil
	}
	var class sql.NullInt64
	if p.Class != nil {
		class = sql.NullInt64{Int64: *p.Class, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO predictions(prediction_id, created_at, source, label, class, features, sample_sha256, sample_size, error, key_id)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, p.ID, p.CreatedAt.UTC(), p.Source, p.Label, class, p.Features, p.SampleSHA256, p.SampleSize, p.Error, p.KeyID)
	return err
}

const predictionColumns = `prediction_id, created_at, source, label, class, features, sample_sha256, sample_size, error, key_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row scanner) (Prediction, error) {
	var (
		p     Prediction
		class sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.Source, &p.Label, &class, &p.Features, &p.SampleSHA256, &p.SampleSize, &p.Error, &p.KeyID); err != nil {
		return Prediction{}, err
	}
	if class.Valid {
		v := class.Int64
		p.Class = &v
	}
	return p, nil
}

// ListPredictions returns the newest predictions first.
func (s *Store) ListPredictions(ctx context.Context, limit int) ([]Prediction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+predictionColumns+`
FROM predictions ORDER BY created_at DESC, rowid DESC LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPrediction(ctx context.Context, id string) (Prediction, bool, error) {
	if s == nil || s.db == nil {
		return Prediction{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE prediction_id=?;`, id)
	p, err := scanPrediction(row)
	if err == sql.ErrNoRows {
		return Prediction{}, false, nil
	}
	if err != nil {
		return Prediction{}, false, err
	}
	return p, true, nil
}

// CountByLabel counts successful predictions per label.
func (s *Store) CountByLabel(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	if s == nil || s.db == nil {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT label, COUNT(*) FROM predictions WHERE error = '' GROUP BY label;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			label string
			n     int64
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		out[label] = n
	}
	return out, rows.Err()
}

type APIKeyRecord struct {
	ID           string
	Name         string
	HashedSecret string
	CreatedAt    time.Time
	LastUsedAt   *time.Time
}

func (s *Store) CreateAPIKey(ctx context.Context, record APIKeyRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO api_keys(key_id, name, hashed_secret, created_at)
VALUES(?, ?, ?, ?);
`, record.ID, record.Name, record.HashedSecret, record.CreatedAt.UTC())
	return err
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]APIKeyRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT key_id, name, hashed_secret, created_at, last_used_at
FROM api_keys ORDER BY created_at DESC;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []APIKeyRecord
	for rows.Next() {
		var r APIKeyRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.HashedSecret, &r.CreatedAt, &r.LastUsedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetAPIKey(ctx context.Context, id string) (APIKeyRecord, bool, error) {
	if s == nil || s.db == nil {
		return APIKeyRecord{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, `
SELECT key_id, name, hashed_secret, created_at, last_used_at
FROM api_keys WHERE key_id=?;
`, id)
	var r APIKeyRecord
	err := row.Scan(&r.ID, &r.Name, &r.HashedSecret, &r.CreatedAt, &r.LastUsedAt)
	if err == sql.ErrNoRows {
		return APIKeyRecord{}, false, nil
	}
	if err != nil {
		return APIKeyRecord{}, false, err
	}
	return r, true, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE key_id=?;", id)
	return err
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "UPDATE api_keys SET last_used_at=? WHERE key_id=?;", time.Now().UTC(), id)
	return err
}
