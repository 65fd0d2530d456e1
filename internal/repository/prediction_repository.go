package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"tourismprj/internal/model"
)

type PredictionRepository struct {
	DB *pgxpool.Pool
}

func (r *PredictionRepository) Save(ctx context.Context, p model.Prediction) error {
	features, err := json.Marshal(p.Features)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO predictions
		(id, status, probability, label, threshold, reason, model_version, features, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.Status, p.Probability, p.Label, p.Threshold, p.Reason, p.ModelVersion, features, p.CreatedAt)
	return err
}

// Recent returns the newest predictions first.
func (r *PredictionRepository) Recent(ctx context.Context, limit int) ([]model.Prediction, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id::text, status, probability, label, threshold, reason, model_version, features, created_at
		FROM predictions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.Prediction
	for rows.Next() {
		var p model.Prediction
		var features []byte
		if err := rows.Scan(&p.ID, &p.Status, &p.Probability, &p.Label, &p.Threshold, &p.Reason, &p.ModelVersion, &features, &p.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(features, &p.Features)
		res = append(res, p)
	}
	return res, rows.Err()
}
