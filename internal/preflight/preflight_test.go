package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stemsplit/internal/config"
	"stemsplit/internal/services"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDirectoryAccess("test", f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOutputDirectoryMissingButCreatable(t *testing.T) {
	result := CheckOutputDirectory("out", filepath.Join(t.TempDir(), "a", "b"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "created on first job") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	ok := CheckFreeSpace("space", dir, 1)
	if !ok.Passed || ok.Warning {
		t.Fatalf("expected plain pass with 1 byte threshold, got %+v", ok)
	}
	warn := CheckFreeSpace("space", dir, ^uint64(0))
	if !warn.Passed || !warn.Warning {
		t.Fatalf("expected warning with huge threshold, got %+v", warn)
	}
}

type fakePublisher struct {
	enabled bool
	err     error
}

func (f fakePublisher) Publish(context.Context, string, []string) ([]string, error) { return nil, nil }
func (f fakePublisher) Check(context.Context) error                                  { return f.err }
func (f fakePublisher) Enabled() bool                                                { return f.enabled }

func TestCheckUpload(t *testing.T) {
	if r := CheckUpload(context.Background(), "b", fakePublisher{enabled: true}); !r.Passed || r.Warning {
		t.Fatalf("expected pass, got %+v", r)
	}
	missing := services.Wrap(services.ErrNotFound, "upload", "", "", nil)
	if r := CheckUpload(context.Background(), "b", fakePublisher{enabled: true, err: missing}); !r.Passed || !r.Warning {
		t.Fatalf("expected warning for missing bucket, got %+v", r)
	}
	if r := CheckUpload(context.Background(), "b", fakePublisher{enabled: true, err: errors.New("dial tcp: refused")}); r.Passed {
		t.Fatalf("expected failure, got %+v", r)
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), &cfg, fakePublisher{enabled: true, err: errors.New("down")})
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := []string{"State directory", "Log directory", "Output directory", "Free space", "Upload bucket", "Notifications"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected checks: %v", names)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Upload bucket" {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestCheckSystemDepsMarksGPUOptional(t *testing.T) {
	cfg := config.Default()
	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 4 {
		t.Fatalf("expected 4 requirements, got %d", len(statuses))
	}
	if !statuses[3].Optional {
		t.Fatal("expected nvidia-smi to be optional")
	}
	for _, status := range statuses[1:3] {
		if status.Optional {
			t.Fatalf("expected %s to be required", status.Name)
		}
		if !strings.Contains(status.Description, "44.1 kHz") {
			t.Fatalf("expected %s description to cover resampled inputs, got %q", status.Name, status.Description)
		}
	}
}
