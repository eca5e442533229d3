package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is one persisted job outcome.
type Record struct {
	ID           int64         `json:"id"`
	RunID        string        `json:"run_id"`
	JobID        string        `json:"job_id"`
	Input        string        `json:"input"`
	OutputDir    string        `json:"output_dir,omitempty"`
	OK           bool          `json:"ok"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Model        string        `json:"model,omitempty"`
	Device       string        `json:"device,omitempty"`
	Stems        int           `json:"stems"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}

// Recorder appends job outcomes.
type Recorder interface {
	Append(ctx context.Context, rec Record) error
}

// Append inserts rec. Records are never updated.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if rec.JobID == "" || rec.Input == "" {
		return errors.New("history append: job id and input are required")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO jobs
			(run_id, job_id, input_path, output_dir, ok, error_kind, error_message, model, device, stems, started_at, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID,
			rec.JobID,
			rec.Input,
			nullString(rec.OutputDir),
			boolToInt(rec.OK),
			nullString(rec.ErrorKind),
			nullString(rec.ErrorMessage),
			nullString(rec.Model),
			nullString(rec.Device),
			rec.Stems,
			rec.StartedAt.UTC().Format(time.RFC3339Nano),
			rec.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		return nil
	})
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, job_id, input_path, output_dir, ok, error_kind,
			error_message, model, device, stems, started_at, duration_ms
		FROM jobs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec                                     Record
			outputDir, kind, message, model, device sql.NullString
			ok                                      int
			startedAt                               string
			durationMS                              int64
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.JobID, &rec.Input, &outputDir, &ok, &kind,
			&message, &model, &device, &rec.Stems, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		rec.OutputDir = outputDir.String
		rec.OK = ok != 0
		rec.ErrorKind = kind.String
		rec.ErrorMessage = message.String
		rec.Model = model.String
		rec.Device = device.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if parsed, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			rec.StartedAt = parsed
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
