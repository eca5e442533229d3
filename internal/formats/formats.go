// Package formats decides which input files the splitter accepts.
package formats

import (
	"path/filepath"
	"slices"
	"strings"

	"stemsplit/internal/services"
)

var supported = []string{".mp3", ".wav", ".flac", ".m4a", ".aac", ".ogg", ".wma"}

// Extensions returns the accepted extensions in lower case, dot included.
func Extensions() []string {
	return slices.Clone(supported)
}

// IsSupported reports whether path carries an accepted extension. The check
// is case-insensitive and never touches the filesystem.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	return slices.Contains(supported, ext)
}

// Check returns an ErrUnsupportedFormat error for rejected paths.
func Check(path string) error {
	if IsSupported(path) {
		return nil
	}
	ext := filepath.Ext(path)
	if ext == "" {
		ext = "(none)"
	}
	return services.Wrap(
		services.ErrUnsupportedFormat,
		"gate",
		"check extension",
		"unsupported format "+ext+" (expected one of "+strings.Join(supported, ", ")+")",
		nil,
	)
}
