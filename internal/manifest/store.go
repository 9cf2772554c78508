package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the manifest database and applies
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure manifest directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// CreateRun inserts a new run row.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, seed, wlasl_total, msasl_total, discarded, moved, target_ratio, achieved_ratio)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, createdAt.Format(time.RFC3339Nano), run.Seed,
		run.WLASLTotal, run.MSASLTotal, run.Discarded, run.Moved,
		run.TargetRatio, run.AchievedRatio,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun updates the run's summary counters once the engine completes.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET wlasl_total = ?, msasl_total = ?, discarded = ?, moved = ?, target_ratio = ?, achieved_ratio = ? WHERE id = ?`,
		run.WLASLTotal, run.MSASLTotal, run.Discarded, run.Moved,
		run.TargetRatio, run.AchievedRatio, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, seed, wlasl_total, msasl_total, discarded, moved, target_ratio, achieved_ratio
         FROM runs ORDER BY created_at DESC LIMIT 1`)
	var run Run
	var createdAt string
	err := row.Scan(&run.ID, &createdAt, &run.Seed, &run.WLASLTotal, &run.MSASLTotal,
		&run.Discarded, &run.Moved, &run.TargetRatio, &run.AchievedRatio)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		run.CreatedAt = parsed
	}
	return &run, nil
}

// SaveRecordRows persists the per-record reconciliation outcome in one
// transaction.
func (s *Store) SaveRecordRows(ctx context.Context, runID string, rows []RecordRow) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO record_rows (run_id, source, instance_id, label_text, url, original_split, disposition, final_split, locked, video_filename)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare record insert: %w", err)
		}
		defer stmt.Close()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				runID, row.Source, row.InstanceID, row.LabelText, row.URL,
				row.OriginalSplit, row.Disposition, row.FinalSplit,
				boolToInt(row.Locked), row.VideoFilename,
			); err != nil {
				return fmt.Errorf("insert record row %s:%s: %w", row.Source, row.InstanceID, err)
			}
		}
		return nil
	})
}

// SaveDiscards persists the discard report.
func (s *Store) SaveDiscards(ctx context.Context, runID string, discards []DiscardRow) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, d := range discards {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO discards (run_id, source, instance_id, url, reason) VALUES (?, ?, ?, ?, ?)`,
				runID, d.Source, d.InstanceID, d.URL, d.Reason,
			); err != nil {
				return fmt.Errorf("insert discard: %w", err)
			}
		}
		return nil
	})
}

// SaveWarnings persists run warnings (ambiguous classifications, ratio
// deviations, filename renames).
func (s *Store) SaveWarnings(ctx context.Context, runID string, warnings []WarningRow) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, w := range warnings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO warnings (run_id, kind, detail) VALUES (?, ?, ?)`,
				runID, w.Kind, w.Detail,
			); err != nil {
				return fmt.Errorf("insert warning: %w", err)
			}
		}
		return nil
	})
}

// SavePlanItems persists the processing work plan.
func (s *Store) SavePlanItems(ctx context.Context, runID string, items []PlanItem) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO plan_items (run_id, video_filename, source, instance_id, kind, source_path, url,
                has_frames, start_frame, end_frame, has_times, start_seconds, end_seconds, status, error)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare plan insert: %w", err)
		}
		defer stmt.Close()
		for _, item := range items {
			status := item.Status
			if status == "" {
				status = PlanPending
			}
			if _, err := stmt.ExecContext(ctx,
				runID, item.VideoFilename, item.Source, item.InstanceID, item.Kind,
				item.SourcePath, item.URL,
				boolToInt(item.HasFrames), item.StartFrame, item.EndFrame,
				boolToInt(item.HasTimes), item.StartSeconds, item.EndSeconds,
				status, item.Error,
			); err != nil {
				return fmt.Errorf("insert plan item %s: %w", item.VideoFilename, err)
			}
		}
		return nil
	})
}

// UpdatePlanItem records the fetch outcome for one plan item.
func (s *Store) UpdatePlanItem(ctx context.Context, runID, filename, status, errDetail string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE plan_items SET status = ?, error = ? WHERE run_id = ? AND video_filename = ?`,
		status, errDetail, runID, filename,
	)
	if err != nil {
		return fmt.Errorf("update plan item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("plan item rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("plan item %q not found in run %s", filename, runID)
	}
	return nil
}

// PlanItems returns the run's plan in stable filename order, optionally
// filtered by status.
func (s *Store) PlanItems(ctx context.Context, runID, status string) ([]PlanItem, error) {
	query := `SELECT video_filename, source, instance_id, kind, source_path, url,
                has_frames, start_frame, end_frame, has_times, start_seconds, end_seconds, status, error
              FROM plan_items WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY video_filename`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query plan items: %w", err)
	}
	defer rows.Close()

	var items []PlanItem
	for rows.Next() {
		var item PlanItem
		var hasFrames, hasTimes int
		if err := rows.Scan(&item.VideoFilename, &item.Source, &item.InstanceID, &item.Kind,
			&item.SourcePath, &item.URL,
			&hasFrames, &item.StartFrame, &item.EndFrame,
			&hasTimes, &item.StartSeconds, &item.EndSeconds,
			&item.Status, &item.Error,
		); err != nil {
			return nil, fmt.Errorf("scan plan item: %w", err)
		}
		item.HasFrames = hasFrames != 0
		item.HasTimes = hasTimes != 0
		items = append(items, item)
	}
	return items, rows.Err()
}

// MetadataRows returns the run's surviving records as final metadata rows,
// sorted by global instance id for reproducible output.
func (s *Store) MetadataRows(ctx context.Context, runID string) ([]MetadataRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, instance_id, label_text, video_filename, final_split, url
         FROM record_rows
         WHERE run_id = ? AND disposition != 'discard_duplicate'
         ORDER BY source || ':' || instance_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query metadata rows: %w", err)
	}
	defer rows.Close()

	var out []MetadataRow
	for rows.Next() {
		var row MetadataRow
		if err := rows.Scan(&row.Source, &row.InstanceID, &row.LabelText,
			&row.VideoFilename, &row.FinalSplit, &row.URL); err != nil {
			return nil, fmt.Errorf("scan metadata row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SplitCounts returns surviving record counts per final split for a run.
func (s *Store) SplitCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT final_split, COUNT(1) FROM record_rows
         WHERE run_id = ? AND disposition != 'discard_duplicate'
         GROUP BY final_split`, runID)
	if err != nil {
		return nil, fmt.Errorf("query split counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var split string
		var count int
		if err := rows.Scan(&split, &count); err != nil {
			return nil, fmt.Errorf("scan split count: %w", err)
		}
		counts[split] = count
	}
	return counts, rows.Err()
}

// Discards returns the run's discard report.
func (s *Store) Discards(ctx context.Context, runID string) ([]DiscardRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, instance_id, url, reason FROM discards WHERE run_id = ? ORDER BY source, instance_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query discards: %w", err)
	}
	defer rows.Close()

	var out []DiscardRow
	for rows.Next() {
		var d DiscardRow
		if err := rows.Scan(&d.Source, &d.InstanceID, &d.URL, &d.Reason); err != nil {
			return nil, fmt.Errorf("scan discard: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Warnings returns the run's warnings.
func (s *Store) Warnings(ctx context.Context, runID string) ([]WarningRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, detail FROM warnings WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query warnings: %w", err)
	}
	defer rows.Close()

	var out []WarningRow
	for rows.Next() {
		var w WarningRow
		if err := rows.Scan(&w.Kind, &w.Detail); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
