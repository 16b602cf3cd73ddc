package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const astros = `{"message":"success","number":3,"people":[
{"name":"Oleg Kononenko","craft":"ISS"},
{"name":"Nikolai Chub","craft":"ISS"},
{"name":"Ye Guangfu","craft":"Tiangong"}]}`

func newTestFetcher(t *testing.T, url string, attempts int) *Fetcher {
	t.Helper()
	f := NewFetcher(url, t.TempDir(), attempts)
	f.pause = 0
	return f
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantFirst string
		wantErr   bool
	}{
		{"ok", astros, 3, "ISS/Oleg Kononenko", false},
		{"missing fields", `{"number":1,"people":[{}]}`, 1, "Unknown/Unknown", false},
		{"number from list", `{"people":[{"name":"A","craft":"B"}]}`, 1, "B/A", false},
		{"empty", `{"message":"success","number":0,"people":[]}`, 0, "", false},
		{"api failure", `{"message":"failure"}`, 0, "", true},
		{"not json", `<html>`, 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if c.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", c.Count, tt.wantCount)
			}
			if tt.wantFirst != "" {
				got := c.Entries[0].Label + "/" + c.Entries[0].Name
				if got != tt.wantFirst {
					t.Errorf("first entry = %q, want %q", got, tt.wantFirst)
				}
			}
		})
	}
}

func TestFetchUsesConditionalCache(t *testing.T) {
	var hits, conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(astros))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 1)
	first, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.FromCache || first.Content.Count != 3 {
		t.Fatalf("first fetch = %+v", first)
	}

	second, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !second.FromCache || second.Content.Count != 3 {
		t.Errorf("second fetch = %+v, want cached content", second)
	}
	if hits.Load() != 2 || conditional.Load() != 1 {
		t.Errorf("hits = %d, conditional = %d", hits.Load(), conditional.Load())
	}
}

func TestFetchFallsBackToCacheOnServerError(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(astros))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 1)
	if _, err := f.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}
	fail.Store(true)
	res, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch with cache: %v", err)
	}
	if !res.FromCache || res.Content.Count != 3 {
		t.Errorf("result = %+v, want cached content", res)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(astros))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 3)
	res, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Content.Count != 3 || hits.Load() != 3 {
		t.Errorf("count = %d after %d hits", res.Content.Count, hits.Load())
	}
}

func TestFetchGivesUpAfterAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 2)
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch succeeded against a failing server")
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestFetchDoesNotCacheBadBody(t *testing.T) {
	var good atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if good.Load() {
			_, _ = w.Write([]byte(astros))
			return
		}
		w.Header().Set("ETag", `"bad"`)
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 1)
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("bad body accepted")
	}
	if _, err := f.loadCacheBody(f.cachePath()); err == nil {
		t.Error("bad body was cached")
	}
	good.Store(true)
	if _, err := f.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRedactURL(t *testing.T) {
	tests := map[string]string{
		"http://api.open-notify.org/astros.json": "http://api.open-notify.org/...(redacted)",
		"https://example.com/path?token=abcd":    "https://example.com/...(redacted)",
		"no-scheme":                              "http://...(redacted)",
	}
	for in, want := range tests {
		if got := redactURL(in); got != want {
			t.Errorf("redactURL(%q) = %q, want %q", in, got, want)
		}
	}
}
