package pipeline

import (
	"sync"
	"time"

	"stemsplit/internal/services"
)

// Stage names a step of a split job as reported to progress listeners.
type Stage string

const (
	StageQueued       Stage = "queued"
	StageLoadingModel Stage = "loading_model"
	StageLoadingAudio Stage = "loading_audio"
	StageSeparating   Stage = "separating"
	StageSaving       Stage = "saving_stems"
	StageComplete     Stage = "complete"
	StageFailed       Stage = "failed"
	StageBatchStarted Stage = "batch_started"
	StageBatchDone    Stage = "batch_complete"
)

// Event is a progress update emitted while a job or batch runs.
type Event struct {
	Stage   Stage     `json:"stage"`
	Message string    `json:"message"`
	Input   string    `json:"input,omitempty"`
	JobID   string    `json:"job_id,omitempty"`
	Index   int       `json:"index,omitempty"`
	Total   int       `json:"total,omitempty"`
	Time    time.Time `json:"time"`
}

// Reporter receives progress events. Implementations must not block for long;
// events are delivered synchronously from the job goroutine.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(evt).
func (f ReporterFunc) Report(evt Event) {
	if f != nil {
		f(evt)
	}
}

// MultiReporter fans events out to several reporters in order.
type MultiReporter []Reporter

// Report delivers evt to every non-nil reporter.
func (m MultiReporter) Report(evt Event) {
	for _, r := range m {
		if r != nil {
			r.Report(evt)
		}
	}
}

// JobResult is the outcome of one single-file split.
type JobResult struct {
	Input     string
	JobID     string
	OK        bool
	OutputDir string
	Stems     []string
	Uploaded  []string
	Err       error
	Duration  time.Duration
}

// JobSummary is the serializable view of a JobResult.
type JobSummary struct {
	Input      string   `json:"input"`
	JobID      string   `json:"job_id"`
	OK         bool     `json:"ok"`
	OutputDir  string   `json:"output_dir,omitempty"`
	Stems      []string `json:"stems,omitempty"`
	Uploaded   []string `json:"uploaded,omitempty"`
	Error      string   `json:"error,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// Summary converts r for JSON output.
func (r JobResult) Summary() JobSummary {
	summary := JobSummary{
		Input:      r.Input,
		JobID:      r.JobID,
		OK:         r.OK,
		OutputDir:  r.OutputDir,
		Stems:      r.Stems,
		Uploaded:   r.Uploaded,
		ErrorKind:  services.Kind(r.Err),
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		summary.Error = r.Err.Error()
	}
	return summary
}

// BatchResult aggregates the jobs of one directory run. Err is set only when
// the directory itself could not be enumerated.
type BatchResult struct {
	Dir        string
	OutputRoot string
	Results    []JobResult
	Succeeded  int
	Failed     int
	Canceled   bool
	Err        error
	Duration   time.Duration
}

// BatchSummary is the serializable view of a BatchResult.
type BatchSummary struct {
	Dir        string       `json:"dir"`
	OutputRoot string       `json:"output_root,omitempty"`
	Results    []JobSummary `json:"results"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Canceled   bool         `json:"canceled,omitempty"`
	Error      string       `json:"error,omitempty"`
	DurationMS int64        `json:"duration_ms"`
}

// Summary converts b for JSON output.
func (b BatchResult) Summary() BatchSummary {
	summary := BatchSummary{
		Dir:        b.Dir,
		OutputRoot: b.OutputRoot,
		Results:    make([]JobSummary, 0, len(b.Results)),
		Succeeded:  b.Succeeded,
		Failed:     b.Failed,
		Canceled:   b.Canceled,
		DurationMS: b.Duration.Milliseconds(),
	}
	for _, r := range b.Results {
		summary.Results = append(summary.Results, r.Summary())
	}
	if b.Err != nil {
		summary.Error = b.Err.Error()
	}
	return summary
}

// EventLog collects events in memory. It is safe for concurrent use.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// Report appends evt.
func (l *EventLog) Report(evt Event) {
	l.mu.Lock()
	l.events = append(l.events, evt)
	l.mu.Unlock()
}

// Events returns a copy of the collected events.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}
