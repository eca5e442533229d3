package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNotFound          = errors.New("not found")
	ErrModelLoad         = errors.New("model load error")
	ErrDecode            = errors.New("decode error")
	ErrSeparation        = errors.New("separation error")
	ErrWrite             = errors.New("write error")
	ErrExternalTool      = errors.New("external tool error")
	ErrConfiguration     = errors.New("configuration error")
	ErrBusy              = errors.New("run already in progress")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short stable label for the marker carried by err. It is used
// in summaries and the job history.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrModelLoad):
		return "model_load"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrSeparation):
		return "separation"
	case errors.Is(err, ErrWrite):
		return "write"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
