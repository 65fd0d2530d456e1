package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"tourismprj/internal/model"
)

type SplitRunRepository struct {
	DB *sql.DB
}

// Save inserts the run, or updates it when the id is already stored.
func (r *SplitRunRepository) Save(ctx context.Context, run model.SplitRun) error {
	files, err := json.Marshal(run.Files)
	if err != nil {
		return err
	}

	var exists bool
	err = r.DB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM split_runs WHERE id = $1)", run.ID).Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		_, err = r.DB.ExecContext(ctx, `
			UPDATE split_runs
			SET status = $1, files = $2, error = $3, ended_at = $4,
			    rows_total = $5, rows_train = $6, rows_test = $7
			WHERE id = $8
		`, run.Status, string(files), run.Error, run.EndedAt, run.Rows, run.TrainRows, run.TestRows, run.ID)
	} else {
		_, err = r.DB.ExecContext(ctx, `
			INSERT INTO split_runs
			(id, source, repo, seed, test_ratio, rows_total, rows_train, rows_test, status, files, error, started_at, ended_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, run.ID, run.Source, run.Repo, run.Seed, run.TestRatio, run.Rows, run.TrainRows, run.TestRows,
			run.Status, string(files), run.Error, run.StartedAt, run.EndedAt)
	}

	return err
}

func (r *SplitRunRepository) List(ctx context.Context, limit int) ([]model.SplitRun, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, source, repo, seed, test_ratio, rows_total, rows_train, rows_test, status, files, error, started_at, ended_at
		FROM split_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.SplitRun
	for rows.Next() {
		var run model.SplitRun
		var files []byte
		if err := rows.Scan(&run.ID, &run.Source, &run.Repo, &run.Seed, &run.TestRatio, &run.Rows, &run.TrainRows,
			&run.TestRows, &run.Status, &files, &run.Error, &run.StartedAt, &run.EndedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(files, &run.Files)
		list = append(list, run)
	}

	return list, rows.Err()
}
