package formats_test

import (
	"errors"
	"strings"
	"testing"

	"stemsplit/internal/formats"
	"stemsplit/internal/services"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"song.mp3", true},
		{"SONG.MP3", true},
		{"/music/a.Wav", true},
		{"track.flac", true},
		{"track.m4a", true},
		{"track.AAC", true},
		{"track.ogg", true},
		{"track.wma", true},
		{"notes.txt", false},
		{"noext", false},
		{"archive.mp3.zip", false},
		{".mp3", true},
		{"", false},
	}
	for _, tc := range tests {
		if got := formats.IsSupported(tc.path); got != tc.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestEveryExtensionInAnyCase(t *testing.T) {
	for _, ext := range formats.Extensions() {
		for _, variant := range []string{ext, strings.ToUpper(ext), strings.ToUpper(ext[:2]) + ext[2:]} {
			if !formats.IsSupported("file" + variant) {
				t.Fatalf("expected %q to be supported", variant)
			}
		}
	}
}

func TestCheckMarksUnsupported(t *testing.T) {
	err := formats.Check("notes.txt")
	if !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if !strings.Contains(err.Error(), ".txt") {
		t.Fatalf("expected extension in message, got %q", err.Error())
	}
	if err := formats.Check("ok.flac"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtensionsReturnsCopy(t *testing.T) {
	exts := formats.Extensions()
	exts[0] = ".exe"
	if formats.IsSupported("x.exe") {
		t.Fatal("mutating the returned slice must not change the allow-list")
	}
}
