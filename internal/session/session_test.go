package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stemsplit/internal/logging"
	"stemsplit/internal/pipeline"
	"stemsplit/internal/services"
	"stemsplit/internal/session"
)

type blockingRunner struct {
	hub     *session.Hub
	release chan struct{}

	mu    sync.Mutex
	calls []string
}

func (r *blockingRunner) SplitFile(ctx context.Context, input, outputDir string) pipeline.JobResult {
	r.mu.Lock()
	r.calls = append(r.calls, "file:"+input)
	r.mu.Unlock()
	r.hub.Report(pipeline.Event{Stage: pipeline.StageSeparating, Message: "separating", Input: input})
	<-r.release
	if input == "bad.wav" {
		return pipeline.JobResult{Input: input, Err: services.Wrap(services.ErrDecode, "load", "decode audio", input, nil)}
	}
	return pipeline.JobResult{Input: input, OK: true, OutputDir: outputDir, Stems: []string{"a", "b", "c", "d"}}
}

func (r *blockingRunner) SplitDir(ctx context.Context, dir, outputRoot string) pipeline.BatchResult {
	r.mu.Lock()
	r.calls = append(r.calls, "dir:"+dir)
	r.mu.Unlock()
	<-r.release
	return pipeline.BatchResult{Dir: dir, Succeeded: 2, Failed: 1, Results: make([]pipeline.JobResult, 3)}
}

func (r *blockingRunner) Model() string { return "htdemucs" }

func newController(t *testing.T) (*session.Controller, *blockingRunner) {
	t.Helper()
	hub := session.NewHub(16)
	runner := &blockingRunner{hub: hub, release: make(chan struct{})}
	ctrl := session.NewController(context.Background(), runner, hub, logging.NewNop())
	return ctrl, runner
}

func waitForMessage(t *testing.T, ctrl *session.Controller, want string) session.Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status := ctrl.Status()
		if status.Message == want {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status message never became %q (last %q)", want, ctrl.Status().Message)
	return session.Status{}
}

func TestControllerRejectsConcurrentRuns(t *testing.T) {
	ctrl, runner := newController(t)

	runID, err := ctrl.Start(session.Request{Input: "song.wav"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if runID == "" {
		t.Fatal("expected run id")
	}
	status := waitForMessage(t, ctrl, "separating")
	if !status.Running || status.RunID != runID || status.Model != "htdemucs" {
		t.Fatalf("unexpected status: %+v", status)
	}

	if _, err := ctrl.Start(session.Request{Input: "other.wav"}); !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}

	close(runner.release)
	ctrl.Wait()

	status = ctrl.Status()
	if status.Running || status.Message != "complete" {
		t.Fatalf("unexpected final status: %+v", status)
	}
	if status.LastJob == nil || !status.LastJob.OK {
		t.Fatalf("expected successful last job, got %+v", status.LastJob)
	}

	if _, err := ctrl.Start(session.Request{Input: "third.wav"}); err != nil {
		t.Fatalf("expected controller to accept a new run, got %v", err)
	}
	ctrl.Wait()
	if len(runner.calls) != 2 {
		t.Fatalf("calls = %v", runner.calls)
	}
}

func TestControllerReportsFailureAndBatch(t *testing.T) {
	ctrl, runner := newController(t)
	close(runner.release)

	if _, err := ctrl.Start(session.Request{Input: "bad.wav"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctrl.Wait()
	status := ctrl.Status()
	if status.LastJob == nil || status.LastJob.OK || status.LastJob.ErrorKind != "decode" {
		t.Fatalf("unexpected last job: %+v", status.LastJob)
	}

	if _, err := ctrl.Start(session.Request{Input: "/music", Batch: true}); err != nil {
		t.Fatalf("start batch: %v", err)
	}
	ctrl.Wait()
	status = ctrl.Status()
	if status.LastBatch == nil || status.LastBatch.Succeeded != 2 {
		t.Fatalf("unexpected last batch: %+v", status.LastBatch)
	}
	if status.Message != "complete: 2 files split, 1 failure" {
		t.Fatalf("message = %q", status.Message)
	}
}

func TestControllerRequiresInput(t *testing.T) {
	ctrl, _ := newController(t)
	if _, err := ctrl.Start(session.Request{Input: "  "}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHubFetchAndWait(t *testing.T) {
	hub := session.NewHub(3)
	for _, msg := range []string{"one", "two", "three", "four"} {
		hub.Report(pipeline.Event{Stage: pipeline.StageSeparating, Message: msg})
	}

	events, next, err := hub.Fetch(context.Background(), 0, 0, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 3 || events[0].Message != "two" || next != 4 {
		t.Fatalf("unexpected fetch: %+v next=%d", events, next)
	}

	events, _, _ = hub.Fetch(context.Background(), next, 0, false)
	if len(events) != 0 {
		t.Fatalf("expected no new events, got %+v", events)
	}

	done := make(chan []session.StatusEvent, 1)
	go func() {
		evts, _, _ := hub.Fetch(context.Background(), next, 10, true)
		done <- evts
	}()
	time.Sleep(10 * time.Millisecond)
	hub.Report(pipeline.Event{Stage: pipeline.StageComplete, Message: "five"})
	select {
	case evts := <-done:
		if len(evts) != 1 || evts[0].Message != "five" || evts[0].Sequence != 5 {
			t.Fatalf("unexpected waited events: %+v", evts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not wake")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if _, _, err := hub.Fetch(ctx, 5, 10, true); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled wait, got %v", err)
	}
}
