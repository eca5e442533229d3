package api

import (
	"stemsplit/internal/history"
	"stemsplit/internal/separation"
	"stemsplit/internal/session"
)

// JobRequest is the body of POST /api/jobs.
type JobRequest struct {
	Input     string `json:"input" validate:"required,max=4096"`
	OutputDir string `json:"output_dir" validate:"omitempty,max=4096"`
	Batch     bool   `json:"batch"`
}

// JobAccepted is returned when a run starts.
type JobAccepted struct {
	RunID string `json:"run_id"`
}

// StatusResponse wraps the controller status.
type StatusResponse struct {
	session.Status
}

// HistoryResponse lists recent jobs. Enabled is false when the history store
// is turned off in config.
type HistoryResponse struct {
	Enabled bool             `json:"enabled"`
	Jobs    []history.Record `json:"jobs"`
}

// ModelsResponse lists the separation model catalogue.
type ModelsResponse struct {
	Default string                 `json:"default"`
	Current string                 `json:"current"`
	Models  []separation.ModelInfo `json:"models"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
