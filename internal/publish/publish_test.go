package publish_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"stemsplit/internal/config"
	"stemsplit/internal/publish"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, base, file, want string
	}{
		{"stems", "song", "song_drums.wav", "stems/song/song_drums.wav"},
		{"", "song", "song_bass.wav", "song/song_bass.wav"},
		{"/a/b/", "track 1", "x.wav", "a/b/track 1/x.wav"},
	}
	for _, tc := range tests {
		if got := publish.ObjectKey(tc.prefix, tc.base, tc.file); got != tc.want {
			t.Fatalf("ObjectKey(%q,%q,%q) = %q, want %q", tc.prefix, tc.base, tc.file, got, tc.want)
		}
	}
}

func TestNewDisabledIsNoop(t *testing.T) {
	cfg := config.Default()
	pub, err := publish.New(&cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if pub.Enabled() {
		t.Fatal("expected disabled publisher")
	}
	keys, err := pub.Publish(context.Background(), "song", []string{"a.wav"})
	if err != nil || keys != nil {
		t.Fatalf("expected noop publish, got %v %v", keys, err)
	}
}

type fakeS3 struct {
	mu      sync.Mutex
	puts    []string
	created bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/stems-bucket/":
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead && r.URL.Path == "/stems-bucket":
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && (r.URL.Path == "/stems-bucket/" || r.URL.Path == "/stems-bucket"):
		f.created = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		f.puts = append(f.puts, r.URL.Path)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestPublishCreatesBucketAndUploads(t *testing.T) {
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	endpoint, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	cfg := config.Default()
	cfg.Upload.Enabled = true
	cfg.Upload.Endpoint = endpoint.Host
	cfg.Upload.UseSSL = false
	cfg.Upload.Bucket = "stems-bucket"
	cfg.Upload.AccessKey = "access"
	cfg.Upload.SecretKey = "secret"
	cfg.Upload.Prefix = "uploads"

	pub, err := publish.New(&cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !pub.Enabled() {
		t.Fatal("expected enabled publisher")
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "song_vocals.wav")
	if err := os.WriteFile(file, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write stem: %v", err)
	}

	keys, err := pub.Publish(context.Background(), "song", []string{file})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(keys) != 1 || keys[0] != "uploads/song/song_vocals.wav" {
		t.Fatalf("unexpected keys: %v", keys)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !fake.created {
		t.Fatal("expected bucket to be created")
	}
	if len(fake.puts) != 1 || fake.puts[0] != "/stems-bucket/uploads/song/song_vocals.wav" {
		t.Fatalf("unexpected object puts: %v", fake.puts)
	}
}
