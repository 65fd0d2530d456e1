package model

import "time"

const (
	RunPublished = "published"
	RunPartial   = "partial"
	RunFailed    = "failed"
	RunWritten   = "written"
)

// SplitRun is one execution of the dataset publisher.
type SplitRun struct {
	ID        string
	Source    string
	Repo      string
	Seed      int64
	TestRatio float64
	Rows      int
	TrainRows int
	TestRows  int
	Status    string
	Files     []FileUpload
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

type FileUpload struct {
	Name     string `json:"name"`
	Bytes    int64  `json:"bytes"`
	Uploaded bool   `json:"uploaded"`
	Error    string `json:"error,omitempty"`
}
