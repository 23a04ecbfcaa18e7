package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestApp(t *testing.T, stateDir string) *App {
	t.Helper()
	a, err := New(Config{StateDir: stateDir, MaxAttempts: 1, PerRequestTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func TestGet_EndToEnd(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Last-Modified", time.Date(2024, 5, 20, 7, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		_, _ = w.Write([]byte("artifact-bytes"))
	}))
	defer srv.Close()

	state := t.TempDir()
	a := newTestApp(t, state)

	out := filepath.Join(t.TempDir(), "artifact.bin")
	if err := a.Get(context.Background(), srv.URL+"/artifact", out, 0); err != nil {
		t.Fatalf("get: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil || string(b) != "artifact-bytes" {
		t.Fatalf("output = %q, %v", b, err)
	}

	// The same URL served again with FETCHCACHE_OFFLINE set must come
	// from the cache populated above, without another server hit.
	t.Setenv("FETCHCACHE_OFFLINE", "1")
	out2 := filepath.Join(t.TempDir(), "artifact2.bin")
	if err := a.Get(context.Background(), srv.URL+"/artifact", out2, 0); err != nil {
		t.Fatalf("offline get: %v", err)
	}
	b2, err := os.ReadFile(out2)
	if err != nil || string(b2) != "artifact-bytes" {
		t.Fatalf("offline output = %q, %v", b2, err)
	}
	if calls != 1 {
		t.Fatalf("server saw %d calls, want 1", calls)
	}
	if _, err := os.Stat(filepath.Join(state, "cache")); err != nil {
		t.Fatalf("cache dir missing: %v", err)
	}
}

func TestModTime_EndToEnd(t *testing.T) {
	lastMod := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", lastMod.Format(http.TimeFormat))
	}))
	defer srv.Close()

	a := newTestApp(t, t.TempDir())
	ts, err := a.ModTime(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("modtime: %v", err)
	}
	if !ts.Equal(lastMod) {
		t.Fatalf("modtime = %v, want %v", ts, lastMod)
	}
}

func TestPurge_EmptiesCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	state := t.TempDir()
	a := newTestApp(t, state)
	out := filepath.Join(t.TempDir(), "f")
	if err := a.Get(context.Background(), srv.URL, out, 0); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := a.Purge(); err != nil {
		t.Fatalf("purge: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(state, "cache"))
	if err != nil {
		t.Fatalf("cache dir gone after purge: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("cache not empty after purge: %d entries", len(entries))
	}
}
