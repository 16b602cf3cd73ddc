package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"spacepanel/internal/battery"
	"spacepanel/internal/config"
	appLog "spacepanel/internal/log"
)

// Previewer supplies the last frame drawn on the panel; *panel.Panel
// implements it.
type Previewer interface {
	Snapshot() *image.NRGBA
}

// Options wires the server to the rest of the program. Any field may be
// nil; the matching endpoint then reports the feature as unavailable.
type Options struct {
	// ConfigPath is where interval changes are saved.
	ConfigPath string
	Store      *Store
	Preview    Previewer
	Battery    battery.Reader
	// OnIntervalChange is called after a new update interval is saved.
	OnIntervalChange func(time.Duration)
}

// Server provides the Web UI and JSON API.
type Server struct {
	opts Options
	mux  *http.ServeMux

	cfgMu sync.RWMutex
	cfg   *config.Config

	// In-memory cache for battery status. This avoids hitting I2C (or
	// even the mock) on every single HTTP call.
	batteryMu    sync.RWMutex
	batteryCache *batteryCache
}

// embeddedStatic contains the control page.
//
//go:embed all:static
var embeddedStatic embed.FS

const (
	batteryCacheTTL = 30 * time.Second
	minHours        = 1
	maxHours        = 24
)

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, opts Options) *Server {
	if opts.Store == nil {
		opts.Store = &Store{}
	}
	s := &Server{
		cfg:  cfg,
		opts: opts,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Serve listens on cfg.Listen until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="SpacePanel", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/latest", s.handleLatest)
	s.mux.HandleFunc("/api/config", s.handleConfig)
	s.mux.HandleFunc("/api/config/interval", s.handleInterval)
	s.mux.HandleFunc("/api/battery", s.handleBattery)
	s.mux.HandleFunc("/preview.png", s.handlePreview)

	// All other non-/api/* paths are served from the embedded page.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// latestResponse is the JSON response shape for /api/latest. Data mirrors
// the upstream astros.json document.
type latestResponse struct {
	Data        astrosDTO `json:"data"`
	LastUpdated time.Time `json:"last_updated"`
	Timestamp   int64     `json:"timestamp"`
}

type astrosDTO struct {
	Number  int         `json:"number"`
	Message string      `json:"message"`
	People  []personDTO `json:"people"`
}

type personDTO struct {
	Name  string `json:"name"`
	Craft string `json:"craft"`
}

// handleLatest returns the most recently fetched list of people in space,
// or 503 until the first fetch succeeded.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")

	content, updated, ok := s.opts.Store.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "No data available yet")
		return
	}

	people := make([]personDTO, 0, len(content.Entries))
	for _, e := range content.Entries {
		people = append(people, personDTO{Name: e.Name, Craft: e.Label})
	}
	writeJSON(w, http.StatusOK, latestResponse{
		Data: astrosDTO{
			Number:  content.Count,
			Message: "success",
			People:  people,
		},
		LastUpdated: updated,
		Timestamp:   time.Now().Unix(),
	})
}

// configResponse is the JSON response shape for GET /api/config. Secrets
// are never included.
type configResponse struct {
	UpdateIntervalHours int    `json:"update_interval_hours"`
	Refresh             string `json:"refresh"`
	Variant             string `json:"variant"`
	RefreshMode         string `json:"refresh_mode"`
	BatteryEnabled      bool   `json:"battery_enabled"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeConfig(w)
}

func (s *Server) writeConfig(w http.ResponseWriter) {
	s.cfgMu.RLock()
	resp := configResponse{
		UpdateIntervalHours: s.cfg.UpdateIntervalHours,
		Refresh:             s.cfg.RefreshCron,
		Variant:             s.cfg.Display.Variant,
		RefreshMode:         s.cfg.Display.RefreshMode,
		BatteryEnabled:      s.cfg.Battery.Enabled,
	}
	s.cfgMu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

// handleInterval updates the forced redraw interval.
//
// POST /api/config/interval with form field hours=1..24. Browsers get a
// 303 back to the page; clients sending Accept: application/json get the
// new config.
func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	raw := r.PostForm.Get("hours")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing hours parameter")
		return
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < minHours || hours > maxHours {
		writeError(w, http.StatusBadRequest, "hours must be an integer between 1 and 24")
		return
	}

	s.cfgMu.Lock()
	prev := s.cfg.UpdateIntervalHours
	s.cfg.UpdateIntervalHours = hours
	var saveErr error
	if s.opts.ConfigPath != "" {
		saveErr = s.cfg.Save(s.opts.ConfigPath)
		if saveErr != nil {
			s.cfg.UpdateIntervalHours = prev
		}
	}
	s.cfgMu.Unlock()

	if saveErr != nil {
		appLog.Error("config save failed", saveErr, "path", s.opts.ConfigPath)
		writeError(w, http.StatusInternalServerError, "failed to save config")
		return
	}
	appLog.Info("update interval changed via web", "hours", hours, "previous", prev)
	if s.opts.OnIntervalChange != nil {
		s.opts.OnIntervalChange(time.Duration(hours) * time.Hour)
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		s.writeConfig(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleBattery exposes current battery status (percent, voltage) for the Web UI.
//
// Battery status does not need sub-second precision, so reads are cached
// for batteryCacheTTL.
func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()

	// Fast path: return cached value if it's still fresh.
	s.batteryMu.RLock()
	bc := s.batteryCache
	s.batteryMu.RUnlock()
	if bc != nil && now.Sub(bc.updatedAt) < batteryCacheTTL {
		writeJSON(w, http.StatusOK, toBatteryResponse(bc.status))
		return
	}

	br := s.opts.Battery
	if br == nil {
		writeError(w, http.StatusServiceUnavailable, "battery reader unavailable")
		return
	}

	status, err := br.Read(ctx)
	if err != nil {
		appLog.Error("battery read failed", err)
		writeError(w, http.StatusInternalServerError, "failed to read battery")
		return
	}

	s.batteryMu.Lock()
	s.batteryCache = &batteryCache{
		status:    status,
		updatedAt: time.Now(),
	}
	s.batteryMu.Unlock()

	writeJSON(w, http.StatusOK, toBatteryResponse(status))
}

// staticFileServer returns an http.Handler that serves the embedded
// files from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Unknown /api/* paths are 404s, never HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// handlePreview encodes the last frame sent to the panel as PNG.
func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Preview == nil {
		http.Error(w, "preview not available", http.StatusNotFound)
		return
	}
	img := s.opts.Preview.Snapshot()
	if img == nil {
		http.Error(w, "nothing rendered yet", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		appLog.Error("preview encode failed", err)
		http.Error(w, "failed to encode preview", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// batteryCache holds the last known battery status and its timestamp.
type batteryCache struct {
	status    battery.Status
	updatedAt time.Time
}

// batteryResponse is the JSON response shape for /api/battery.
type batteryResponse struct {
	Percent   int `json:"percent"`
	VoltageMv int `json:"voltage_mv"`
}

func toBatteryResponse(st battery.Status) batteryResponse {
	return batteryResponse{Percent: st.Percent, VoltageMv: st.VoltageMv}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
