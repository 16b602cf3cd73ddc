// Package source fetches the list of people currently in space.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "spacepanel/internal/log"
	"spacepanel/internal/model"
)

// DefaultURL is the open-notify astronauts endpoint.
const DefaultURL = "http://api.open-notify.org/astros.json"

const (
	defaultAttempts = 3
	defaultPause    = 2 * time.Second
	unknown         = "Unknown"
)

// payload is the astros.json response shape.
type payload struct {
	Number  int    `json:"number"`
	Message string `json:"message"`
	People  []struct {
		Name  string `json:"name"`
		Craft string `json:"craft"`
	} `json:"people"`
}

// Result is one fetched snapshot.
type Result struct {
	Content model.Content
	// FromCache is true when the body came from the disk cache (304, or a
	// failed request with a cached body to fall back to).
	FromCache bool
}

// cacheEntry holds HTTP cache metadata for the endpoint.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher fetches the astronauts JSON with HTTP caching (ETag /
// Last-Modified) backed by a disk cache.
type Fetcher struct {
	url      string
	client   *http.Client
	cacheDir string
	attempts int
	pause    time.Duration
}

// NewFetcher creates a Fetcher for url.
//
// cacheDir is where the last body and its metadata are kept, e.g.
// "/var/lib/spacepanel/http-cache". attempts bounds the requests made by
// one Fetch; values below 1 mean the default of 3.
func NewFetcher(url, cacheDir string, attempts int) *Fetcher {
	if url == "" {
		url = DefaultURL
	}
	if cacheDir == "" {
		cacheDir = "./var/http-cache"
	}
	if attempts < 1 {
		attempts = defaultAttempts
	}
	return &Fetcher{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
		attempts: attempts,
		pause:    defaultPause,
	}
}

// Fetch returns the current content. Failed attempts are retried after a
// fixed pause until the attempt budget is spent or ctx is done.
func (f *Fetcher) Fetch(ctx context.Context) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		res, err := f.fetchOnce(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err
		appLog.Warn("astros fetch attempt failed", "attempt", attempt, "of", f.attempts, "url", redactURL(f.url), "err", err)

		if attempt == f.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(f.pause):
		}
	}
	return Result{}, fmt.Errorf("source: fetch failed after %d attempts: %w", f.attempts, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context) (Result, error) {
	cachePath := f.cachePath()
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return Result{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "application/json")
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("astros fetch start", "url", redactURL(f.url))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 && ctx.Err() == nil {
			appLog.Error("astros fetch network error, using cached body", err, "url", redactURL(f.url))
			return f.decode(cachedBody, meta.UpdatedAt, true)
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Result{}, err
		}
		res, err := f.decode(body, time.Now().UTC(), false)
		if err != nil {
			// Don't cache a body we can't read back.
			return Result{}, err
		}

		newMeta := cacheEntry{
			URL:          f.url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("astros cache save failed", err, "url", redactURL(f.url))
		}
		appLog.Info("astros fetch success", "url", redactURL(f.url), "count", res.Content.Count)
		return res, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return Result{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Debug("astros not modified; using cache", "url", redactURL(f.url))
		return f.decode(cachedBody, time.Now().UTC(), true)

	default:
		if len(cachedBody) > 0 {
			appLog.Error("astros fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(f.url), "status", resp.StatusCode)
			return f.decode(cachedBody, meta.UpdatedAt, true)
		}
		return Result{}, errors.New(resp.Status)
	}
}

func (f *Fetcher) decode(body []byte, at time.Time, fromCache bool) (Result, error) {
	c, err := Parse(body)
	if err != nil {
		return Result{}, err
	}
	c.FetchedAt = at
	return Result{Content: c, FromCache: fromCache}, nil
}

// Parse decodes an astros.json body. Missing names and crafts become
// "Unknown"; a missing number falls back to the length of the list.
func Parse(body []byte) (model.Content, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.Content{}, fmt.Errorf("source: decode: %w", err)
	}
	if p.Message != "" && p.Message != "success" {
		return model.Content{}, fmt.Errorf("source: api message %q", p.Message)
	}

	c := model.Content{
		Count:   p.Number,
		Entries: make([]model.Entry, 0, len(p.People)),
	}
	for _, person := range p.People {
		e := model.Entry{Label: person.Craft, Name: person.Name}
		if e.Label == "" {
			e.Label = unknown
		}
		if e.Name == "" {
			e.Name = unknown
		}
		c.Entries = append(c.Entries, e)
	}
	if c.Count == 0 {
		c.Count = len(c.Entries)
	}
	return c, nil
}

func (f *Fetcher) cachePath() string {
	sum := sha256.Sum256([]byte(f.url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of u for logging.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "http://...(redacted)"
	}
	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
