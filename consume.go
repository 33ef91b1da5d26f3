package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/jobmatch/internal/analysis"
	"github.com/muhammadolammi/jobmatch/internal/database"
	"github.com/muhammadolammi/jobmatch/internal/inputguard"
	"github.com/muhammadolammi/jobmatch/internal/metrics"
	"github.com/muhammadolammi/jobmatch/internal/resumetext"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

var retryBackoff = 500 * time.Millisecond

// retry retries a function up to `attempts` times with linear backoff
func retry[T any](attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < attempts-1 {
			time.Sleep(retryBackoff * time.Duration(i+1))
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// aggregateResult appends one entry for resume and returns the outcome to
// record for it.
func aggregateResult(results *AnalysesResults, resume database.Resume, resultStr string, hasError bool, errorMsg string) string {
	entry := ResumeAnalysis{
		ResumeID: resume.ID,
		Filename: resume.OriginalFilename,
	}
	outcome := metrics.OutcomeAnalyzed

	switch {
	case hasError:
		entry.IsErrorResult = true
		entry.Error = errorMsg
		outcome = metrics.OutcomeAgentError

	case strings.TrimSpace(resultStr) == "":
		entry.IsErrorResult = true
		entry.Error = "empty response from agent"
		outcome = metrics.OutcomeAgentError

	default:
		raw, err := analysis.Decode([]byte(resultStr))
		if err != nil {
			entry.IsErrorResult = true
			entry.Error = "decode error: " + err.Error()
			outcome = metrics.OutcomeDecodeError
			break
		}
		canonical := analysis.Normalize(raw.Clamp())
		entry.Result = &canonical
	}

	results.Results = append(results.Results, entry)
	return outcome
}

func failEntry(results *AnalysesResults, resume database.Resume, errorMsg string) {
	results.Results = append(results.Results, ResumeAnalysis{
		ResumeID:      resume.ID,
		Filename:      resume.OriginalFilename,
		IsErrorResult: true,
		Error:         errorMsg,
	})
}

func buildAgentMessage(job AnalysisJob, resumeText string) string {
	return fmt.Sprintf(
		"Job Title:\n%s\n\nJob Description:\n%s\n\nResume:\n%s",
		job.JobTitle,
		job.JobDescription,
		resumeText,
	)
}

func (workerConfig *WorkerConfig) runAgent(ctx context.Context, agentSession session.Session, msg string) (string, error) {
	if err := workerConfig.AgentLimiter.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	defer func() { workerConfig.Metrics.RecordAgentLatency(time.Since(start)) }()

	stream := workerConfig.AgentRunner.Run(ctx, agentSession.UserID(), agentSession.ID(), &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: msg},
		},
	}, agent.RunConfig{})

	var output string
	for event, err := range stream {
		if err != nil {
			return "", err
		}
		if event != nil && event.IsFinalResponse() && event.Content != nil && len(event.Content.Parts) > 0 {
			output = event.Content.Parts[0].Text
		}
	}

	if output == "" {
		return "", errors.New("empty agent response")
	}
	return output, nil
}

// analyzeJob runs the agent pipeline for all resumes attached to a job.
// It handles downloading, text extraction, AI analysis, and DB persistence.
// Only network, agent and DB calls are retried.
func analyzeJob(ctx context.Context, job AnalysisJob, workerConfig *WorkerConfig) error {
	log := workerConfig.Logger.With(zap.Stringer("job_id", job.ID))

	if err := inputguard.Validate("job description", job.JobDescription, inputguard.JobDescriptionLimits); err != nil {
		return err
	}

	resumes, err := workerConfig.DB.GetResumesByJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("error getting resumes for job %s: %w", job.ID, err)
	}

	results := &AnalysesResults{
		JobID: job.ID,
	}

	agentSession, err := workerConfig.AgentSessionService.Create(ctx, &session.CreateRequest{
		AppName:   workerConfig.AgentName,
		UserID:    job.UserID.String(),
		SessionID: job.ID.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to create agent session: %w", err)
	}

	for _, resume := range resumes {
		rlog := log.With(zap.String("object_key", resume.ObjectKey))

		fileBytes, err := retry(3, func() ([]byte, error) {
			return DownloadFromR2(ctx, workerConfig.S3, workerConfig.R2.Bucket, resume.ObjectKey)
		})
		if err != nil {
			rlog.Warn("download failed", zap.Error(err))
			failEntry(results, resume, fmt.Sprintf("file download error: %v", err))
			workerConfig.Metrics.RecordResume(metrics.OutcomeDownloadError)
			continue
		}

		resumeText, err := resumetext.Extract(resume.Mime, fileBytes)
		if err != nil {
			rlog.Warn("text extraction failed", zap.Error(err))
			failEntry(results, resume, fmt.Sprintf("text extraction error: %v", err))
			workerConfig.Metrics.RecordResume(metrics.OutcomeExtractError)
			continue
		}

		if err := inputguard.Validate("resume", resumeText, inputguard.ResumeLimits); err != nil {
			rlog.Info("resume rejected", zap.Error(err))
			failEntry(results, resume, err.Error())
			workerConfig.Metrics.RecordResume(metrics.OutcomeRejected)
			continue
		}

		msg := buildAgentMessage(job, resumeText)
		finalOutput, streamErr := retry(2, func() (string, error) {
			return workerConfig.runAgent(ctx, agentSession.Session, msg)
		})

		var outcome string
		if streamErr != nil {
			rlog.Warn("agent failed", zap.Error(streamErr))
			outcome = aggregateResult(results, resume, "", true, fmt.Sprintf("agent stream error: %v", streamErr))
		} else {
			outcome = aggregateResult(results, resume, finalOutput, false, "")
		}
		workerConfig.Metrics.RecordResume(outcome)
	}
	log.Info("job analyzed", zap.Int("resumes", len(resumes)))

	err = workerConfig.AgentSessionService.Delete(ctx, &session.DeleteRequest{
		AppName:   agentSession.Session.AppName(),
		UserID:    agentSession.Session.UserID(),
		SessionID: agentSession.Session.ID(),
	})
	if err != nil {
		return fmt.Errorf("failed to delete agent session: %w", err)
	}

	resultsJSON, err := json.Marshal(results.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal analyses results: %w", err)
	}

	_, err = retry(3, func() (any, error) {
		return nil, workerConfig.DB.CreateOrUpdateAnalysesResults(ctx, database.CreateOrUpdateAnalysesResultsParams{
			Results: resultsJSON,
			JobID:   results.JobID,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to save agent result after retries: %w", err)
	}

	return nil
}

// setJobStatus records and announces status. A job without an ID, from an
// undecodable message, has nothing to update.
func (workerConfig *WorkerConfig) setJobStatus(ctx context.Context, job AnalysisJob, status, message string) {
	log := workerConfig.Logger.With(zap.Stringer("job_id", job.ID), zap.String("status", status))
	if job.ID == uuid.Nil {
		log.Warn("skipping status update for job without id")
		return
	}

	if err := workerConfig.DB.UpdateJobStatus(ctx, database.UpdateJobStatusParams{
		Status: status,
		ID:     job.ID,
	}); err != nil {
		log.Error("failed to update job status", zap.Error(err))
	}

	err := publishJobUpdate(workerConfig.RabbitConn, jobUpdate{
		JobID:     job.ID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Warn("failed to publish update", zap.Error(err))
	}
}

func worker(ctx context.Context, id int, workerConfig *WorkerConfig, wg *sync.WaitGroup) {
	defer wg.Done()
	log := workerConfig.Logger.With(zap.Int("worker", id+1))

	conn, err := amqp.Dial(workerConfig.RABBITMQUrl)
	if err != nil {
		log.Error("error dialling rabbitmq", zap.Error(err))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Error("error opening rabbitmq channel", zap.Error(err))
		return
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		jobsQueue, // queue name
		true,      // durable (survives broker restarts)
		false,     // auto-delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		log.Error("failed to declare queue", zap.Error(err))
		return
	}

	msgs, err := ch.Consume(
		jobsQueue, // queue name
		"",        // consumer tag
		true,      // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		log.Error("error consuming rabbitmq messages", zap.Error(err))
		return
	}

	for {
		var msg amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			return
		case msg, ok = <-msgs:
			if !ok {
				log.Warn("delivery channel closed")
				return
			}
		}

		job := AnalysisJob{}
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			log.Error("error unmarshalling message body", zap.Error(err))
			workerConfig.Metrics.RecordJob(metrics.OutcomeFailed)
			workerConfig.setJobStatus(ctx, job, "failed", "analysis failed")
			continue
		}
		log.Info("processing job", zap.Stringer("job_id", job.ID))

		workerConfig.setJobStatus(ctx, job, "processing", "analysis started")

		if err := analyzeJob(ctx, job, workerConfig); err != nil {
			log.Error("error analyzing job", zap.Stringer("job_id", job.ID), zap.Error(err))
			workerConfig.Metrics.RecordJob(metrics.OutcomeFailed)
			workerConfig.setJobStatus(ctx, job, "failed", "analysis failed")
			continue
		}

		workerConfig.Metrics.RecordJob(metrics.OutcomeCompleted)
		workerConfig.setJobStatus(ctx, job, "completed", "analysis completed")
	}
}

// StartConsumerWorkerPool blocks until every worker has returned.
func (workerConfig *WorkerConfig) StartConsumerWorkerPool(ctx context.Context, numWorkers int) {
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := range numWorkers {
		workerConfig.Logger.Info("worker started", zap.Int("worker", i+1))
		go worker(ctx, i, workerConfig, &wg)
	}
	wg.Wait()
}
