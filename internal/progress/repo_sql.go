package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLRepo stores records in the assessment_progress table. The statements
// use $n placeholders and ON CONFLICT upserts, which both Postgres (pgx) and
// SQLite accept.
type SQLRepo struct {
	db *sql.DB
}

// NewSQLRepo wraps an open database whose migrations have been applied.
func NewSQLRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

func (r *SQLRepo) Save(ctx context.Context, key string, rec Record) error {
	if rec.Answers == nil {
		rec.Answers = map[int]string{}
	}
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO assessment_progress (session_key, answers, start_time, time_remaining, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_key) DO UPDATE SET
			answers = excluded.answers,
			start_time = excluded.start_time,
			time_remaining = excluded.time_remaining,
			saved_at = excluded.saved_at
	`, key, string(answers), rec.StartTime, rec.TimeRemaining, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (r *SQLRepo) Load(ctx context.Context, key string) (Record, error) {
	var (
		answers string
		rec     Record
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT answers, start_time, time_remaining, saved_at
		FROM assessment_progress
		WHERE session_key = $1
	`, key).Scan(&answers, &rec.StartTime, &rec.TimeRemaining, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load progress: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(answers), &raw); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	rec.Answers, err = decodeAnswers(raw)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *SQLRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assessment_progress WHERE session_key = $1`, key); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

var _ Repo = (*SQLRepo)(nil)
