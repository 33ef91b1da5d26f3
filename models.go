package main

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/muhammadolammi/jobmatch/internal/analysis"
	"github.com/muhammadolammi/jobmatch/internal/config"
	"github.com/muhammadolammi/jobmatch/internal/database"
	"github.com/muhammadolammi/jobmatch/internal/metrics"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
)

const (
	jobsQueue         = "analysis_jobs"
	jobUpdateExchange = "job_updates"
)

type WorkerConfig struct {
	DB                  *database.Queries
	R2                  *config.R2
	S3                  *s3.Client
	RabbitConn          *amqp.Connection
	RABBITMQUrl         string
	AgentRunner         *runner.Runner
	AgentSessionService session.Service
	AgentName           string
	AgentLimiter        *rate.Limiter
	Metrics             metrics.Recorder
	Logger              *zap.Logger
}

// AnalysisJob is the queue message asking for every resume attached to a
// job posting to be analyzed against it.
type AnalysisJob struct {
	ID             uuid.UUID `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Name           string    `json:"name"`
	UserID         uuid.UUID `json:"user_id"`
	Status         string    `json:"status"`
	JobTitle       string    `json:"job_title"`
	JobDescription string    `json:"job_description"`
}

type ResumeAnalysis struct {
	ResumeID uuid.UUID                 `json:"resume_id"`
	Filename string                    `json:"filename"`
	Result   *analysis.CanonicalResult `json:"result,omitempty"`
	// Error result entry
	IsErrorResult bool   `json:"is_error_result"`
	Error         string `json:"error,omitempty"`
}

type AnalysesResults struct {
	ID        uuid.UUID        `json:"id"`
	Results   []ResumeAnalysis `json:"results"`
	CreatedAt time.Time        `json:"created_at"`
	JobID     uuid.UUID        `json:"job_id"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type jobUpdate struct {
	JobID     uuid.UUID `json:"job_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
