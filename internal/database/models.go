package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Job struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Name           string
	Status         string
	JobTitle       string
	JobDescription string
	CreatedAt      time.Time
}

type Resume struct {
	ID               uuid.UUID
	OriginalFilename string
	Mime             string
	SizeBytes        int64
	StorageProvider  string
	ObjectKey        string
	StorageUrl       string
	UploadStatus     string
	CreatedAt        time.Time
	JobID            uuid.UUID
}

type AnalysesResult struct {
	ID        uuid.UUID
	JobID     uuid.UUID
	Results   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}
