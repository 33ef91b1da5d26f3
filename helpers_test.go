package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobUpdate(t *testing.T) {
	id := uuid.MustParse("6f1c2a4e-2b7d-4c55-9a53-0d7f1f1f9c11")
	update := jobUpdate{
		JobID:     id,
		Status:    "completed",
		Message:   "analysis completed",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	assert.Equal(t, "job.6f1c2a4e-2b7d-4c55-9a53-0d7f1f1f9c11", updateRoutingKey(update))

	body, err := json.Marshal(update)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"job_id": "6f1c2a4e-2b7d-4c55-9a53-0d7f1f1f9c11",
		"status": "completed",
		"message": "analysis completed",
		"timestamp": "2026-01-02T03:04:05Z"
	}`, string(body))
}
