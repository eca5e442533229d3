package preflight

import (
	"context"

	"stemsplit/internal/config"
	"stemsplit/internal/publish"
)

// MinFreeBytes is the free space below which a warning is reported.
const MinFreeBytes uint64 = 1 << 30

// Result reports the outcome of a single preflight check. Warning results
// pass but deserve the operator's attention.
type Result struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Warning bool   `json:"warning,omitempty"`
	Detail  string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// The upload check only runs when pub is enabled.
func RunAll(ctx context.Context, cfg *config.Config, pub publish.Publisher) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	spaceTarget := cfg.Paths.StateDir
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckOutputDirectory("Output directory", cfg.Paths.OutputDir))
		spaceTarget = cfg.Paths.OutputDir
	}
	results = append(results, CheckFreeSpace("Free space", spaceTarget, MinFreeBytes))

	if pub != nil && pub.Enabled() {
		results = append(results, CheckUpload(ctx, cfg.Upload.Bucket, pub))
	}
	results = append(results, CheckNotifications(cfg.Notifications.NtfyTopic))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
