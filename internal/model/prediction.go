package model

import "time"

// Prediction is one audited form or API submission.
type Prediction struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Probability  float64           `json:"probability"`
	Label        string            `json:"label,omitempty"`
	Threshold    float64           `json:"threshold"`
	Reason       string            `json:"reason,omitempty"`
	ModelVersion string            `json:"model_version"`
	Features     map[string]string `json:"features"`
	CreatedAt    time.Time         `json:"created_at"`
}
