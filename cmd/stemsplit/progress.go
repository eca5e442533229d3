package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"stemsplit/internal/pipeline"
)

// progressReporter renders pipeline events on a terminal. Batches get a
// progress bar; single jobs print one line per stage. Nothing is printed
// when the writer is not a terminal.
type progressReporter struct {
	out      io.Writer
	terminal bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgressReporter(out io.Writer) *progressReporter {
	return &progressReporter{out: out, terminal: shouldColorize(out)}
}

func (p *progressReporter) Report(evt pipeline.Event) {
	if !p.terminal {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch evt.Stage {
	case pipeline.StageBatchStarted:
		p.bar = progressbar.NewOptions(evt.Total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("starting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	case pipeline.StageBatchDone:
		if p.bar != nil {
			_ = p.bar.Finish()
		}
	case pipeline.StageComplete, pipeline.StageFailed:
		if p.bar != nil {
			_ = p.bar.Add(1)
			return
		}
		fmt.Fprintf(p.out, "%s%s\n", statusIndent, evt.Message)
	default:
		if p.bar != nil {
			p.bar.Describe(fmt.Sprintf("[%d/%d] %s", evt.Index, evt.Total, evt.Message))
			return
		}
		fmt.Fprintf(p.out, "%s%s\n", statusIndent, evt.Message)
	}
}

func (p *progressReporter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

func finishProgress(r pipeline.Reporter) {
	if p, ok := r.(*progressReporter); ok && p != nil {
		p.finish()
	}
}
