package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stemsplit/internal/services"
)

// StemFileName returns the output file name for a stem of base.
func StemFileName(base string, stem Stem) string {
	return base + "_" + string(stem) + ".wav"
}

// StemOfFile reports which stem an output file written by WriteStems holds.
func StemOfFile(path string) (Stem, bool) {
	name := filepath.Base(path)
	for _, stem := range StemOrder {
		if strings.HasSuffix(name, "_"+string(stem)+".wav") {
			return stem, true
		}
	}
	return "", false
}

// WriteStems writes every stem of set into dir as {base}_{stem}.wav, 24-bit
// PCM. Each file is written to a temporary sibling and renamed into place so
// existing outputs are replaced whole. Every stem is attempted; the returned
// paths list only the files that were written.
func WriteStems(dir, base string, set StemSet) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrWrite, "write", "create output dir", dir, err)
	}

	written := make([]string, 0, len(StemOrder))
	var errs []error
	for _, stem := range StemOrder {
		buf, ok := set.Get(stem)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: missing from stem set", stem))
			continue
		}
		target := filepath.Join(dir, StemFileName(base, stem))
		if err := writeAtomic(target, buf); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", stem, err))
			continue
		}
		written = append(written, target)
	}
	if len(errs) > 0 {
		return written, services.Wrap(services.ErrWrite, "write", "save stems", dir, errors.Join(errs...))
	}
	return written, nil
}

func writeAtomic(target string, buf *Buffer) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if err := EncodeWAV24(tmp, buf); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		cleanup()
		return err
	}
	return nil
}
