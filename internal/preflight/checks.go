package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"stemsplit/internal/config"
	"stemsplit/internal/deps"
	"stemsplit/internal/publish"
	"stemsplit/internal/services"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOutputDirectory accepts a missing directory when its nearest existing
// ancestor is writable, since output folders are created per job.
func CheckOutputDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := existingAncestor(path)
	if ancestor == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
	}
	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first job)", path)}
}

func existingAncestor(path string) string {
	current := filepath.Clean(path)
	for {
		info, err := os.Stat(current)
		if err == nil && info.IsDir() {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// CheckFreeSpace reports the space available to unprivileged users on the
// filesystem holding path and warns below minBytes.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	target := existingAncestor(path)
	if target == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
	}
	var st unix.Statfs_t
	if err := unix.Statfs(target, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", target, err)}
	}
	available := st.Bavail * uint64(st.Bsize)
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(available), target)
	if available < minBytes {
		return Result{Name: name, Passed: true, Warning: true, Detail: detail + fmt.Sprintf(" (below %s; stems need roughly 40 MiB per minute of audio)", humanize.IBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckUpload verifies the upload bucket is reachable. A missing bucket
// passes with a warning because it is created on first upload.
func CheckUpload(ctx context.Context, bucket string, pub publish.Publisher) Result {
	const name = "Upload bucket"
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pub.Check(checkCtx); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return Result{Name: name, Passed: true, Warning: true, Detail: fmt.Sprintf("%s (created on first upload)", bucket)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", bucket, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", bucket)}
}

// CheckNotifications reports whether an ntfy topic is configured. An empty
// topic is not a failure; notifications are simply off.
func CheckNotifications(topic string) Result {
	const name = "Notifications"
	if strings.TrimSpace(topic) == "" {
		return Result{Name: name, Passed: true, Warning: true, Detail: "ntfy topic not configured (notifications disabled)"}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}

// CheckSystemDeps lists the external binaries for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Separator",
			Command:     cfg.Separator.Command,
			Description: "Required to run the separation model",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Separator.FFmpegBinary,
			Description: "Required to decode non-WAV inputs and resample stems for non-44.1 kHz inputs",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Separator.FFprobeBinary,
			Description: "Required to inspect non-WAV inputs and non-44.1 kHz inputs",
		},
		{
			Name:        "nvidia-smi",
			Command:     "nvidia-smi",
			Description: "Enables automatic CUDA device selection",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}
