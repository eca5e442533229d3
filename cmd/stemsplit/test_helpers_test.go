package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"stemsplit/internal/config"
	"stemsplit/internal/testsupport"
)

// fakeDemucsScript mimics the demucs CLI: it copies the staged input to
// <out>/<model>/<stem>.wav for all four stems.
const fakeDemucsScript = `#!/bin/sh
model=htdemucs
out=.
while [ $# -gt 1 ]; do
  case "$1" in
    -n) model="$2"; shift 2 ;;
    -o) out="$2"; shift 2 ;;
    -d|--filename) shift 2 ;;
    *) shift ;;
  esac
done
mkdir -p "$out/$model"
for stem in drums bass other vocals; do
  cp "$1" "$out/$model/$stem.wav"
done
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake demucs script requires a POSIX shell")
	}

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", base)

	script := filepath.Join(base, "bin", "demucs")
	if err := os.MkdirAll(filepath.Dir(script), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(script, []byte(fakeDemucsScript), 0o755); err != nil {
		t.Fatalf("write fake demucs: %v", err)
	}
	cfg.Separator.Command = script
	cfg.Separator.Device = "cpu"

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
