package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stemsplit/internal/logging"
	"stemsplit/internal/pipeline"
	"stemsplit/internal/services"
)

// Runner executes split jobs. *pipeline.Splitter satisfies it.
type Runner interface {
	SplitFile(ctx context.Context, input, outputDir string) pipeline.JobResult
	SplitDir(ctx context.Context, dir, outputRoot string) pipeline.BatchResult
	Model() string
}

// Request describes one run started from the interactive surface.
type Request struct {
	Input     string
	OutputDir string
	Batch     bool
}

// Status is a point-in-time view of the controller.
type Status struct {
	Running    bool                   `json:"running"`
	RunID      string                 `json:"run_id,omitempty"`
	Input      string                 `json:"input,omitempty"`
	Batch      bool                   `json:"batch"`
	StartedAt  time.Time              `json:"started_at,omitzero"`
	Model      string                 `json:"model"`
	Message    string                 `json:"message"`
	LastJob    *pipeline.JobSummary   `json:"last_job,omitempty"`
	LastBatch  *pipeline.BatchSummary `json:"last_batch,omitempty"`
	LastSeq    uint64                 `json:"last_seq"`
	FinishedAt time.Time              `json:"finished_at,omitzero"`
}

// Controller runs at most one split at a time on a background goroutine.
// Runs are not cancelled mid-job; closing the base context stops a batch
// before its next file.
type Controller struct {
	base   context.Context
	runner Runner
	hub    *Hub
	logger *slog.Logger

	mu     sync.Mutex
	status Status
	wg     sync.WaitGroup
}

// NewController binds runner and hub. base bounds every run started later.
func NewController(base context.Context, runner Runner, hub *Hub, logger *slog.Logger) *Controller {
	if base == nil {
		base = context.Background()
	}
	if hub == nil {
		hub = NewHub(0)
	}
	return &Controller{
		base:   base,
		runner: runner,
		hub:    hub,
		logger: logging.NewComponentLogger(logger, "session"),
		status: Status{Model: runner.Model(), Message: "idle"},
	}
}

// Hub returns the event hub fed by the runner.
func (c *Controller) Hub() *Hub {
	return c.hub
}

// Start launches req in the background and returns its run id. It returns an
// ErrBusy-marked error while another run is in flight.
func (c *Controller) Start(req Request) (string, error) {
	req.Input = strings.TrimSpace(req.Input)
	req.OutputDir = strings.TrimSpace(req.OutputDir)
	if req.Input == "" {
		return "", services.Wrap(services.ErrConfiguration, "session", "start", "input is required", nil)
	}

	c.mu.Lock()
	if c.status.Running {
		runID := c.status.RunID
		c.mu.Unlock()
		return "", services.Wrap(services.ErrBusy, "session", "start", "run "+runID+" in progress", nil)
	}
	runID := uuid.NewString()
	c.status.Running = true
	c.status.RunID = runID
	c.status.Input = req.Input
	c.status.Batch = req.Batch
	c.status.StartedAt = time.Now().UTC()
	c.status.FinishedAt = time.Time{}
	c.status.Message = "starting"
	c.wg.Add(1)
	c.mu.Unlock()

	c.hub.setRun(runID)
	ctx := services.WithRunID(c.base, runID)
	c.logger.Info("run started",
		logging.String(logging.FieldEventType, "session_run_start"),
		logging.String(logging.FieldRunID, runID),
		logging.Input(req.Input),
		logging.Bool("batch", req.Batch),
	)
	go c.run(ctx, runID, req)
	return runID, nil
}

func (c *Controller) run(ctx context.Context, runID string, req Request) {
	defer c.wg.Done()

	var (
		job   *pipeline.JobSummary
		batch *pipeline.BatchSummary
		msg   string
	)
	if req.Batch {
		result := c.runner.SplitDir(ctx, req.Input, req.OutputDir)
		summary := result.Summary()
		batch = &summary
		switch {
		case result.Err != nil:
			msg = "failed: " + result.Err.Error()
		default:
			msg = "complete: " + plural(result.Succeeded, "file") + " split, " + plural(result.Failed, "failure")
		}
	} else {
		result := c.runner.SplitFile(ctx, req.Input, req.OutputDir)
		summary := result.Summary()
		job = &summary
		if result.OK {
			msg = "complete"
		} else {
			msg = "failed: " + summary.Error
		}
	}

	c.mu.Lock()
	c.status.Running = false
	c.status.LastJob = job
	c.status.LastBatch = batch
	c.status.Message = msg
	c.status.FinishedAt = time.Now().UTC()
	c.mu.Unlock()

	c.logger.Info("run finished",
		logging.String(logging.FieldEventType, "session_run_complete"),
		logging.String(logging.FieldRunID, runID),
		logging.String("message", msg),
	)
}

// Status reports whether a run is in flight and the latest progress message.
func (c *Controller) Status() Status {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()

	if last, ok := c.hub.Last(); ok {
		status.LastSeq = last.Sequence
		if status.Running && last.RunID == status.RunID {
			status.Message = last.Message
		}
	}
	return status
}

// Wait blocks until the in-flight run, if any, finishes.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
