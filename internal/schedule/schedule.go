// Package schedule decides when the panel is redrawn. A cron-driven check
// fetches fresh content, publishes it for the web UI and refreshes the
// panel when the count changed or the update interval has elapsed.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"spacepanel/internal/epd"
	appLog "spacepanel/internal/log"
	"spacepanel/internal/model"
	"spacepanel/internal/source"
)

// Fetcher produces content; *source.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context) (source.Result, error)
}

// Renderer draws on the panel; *panel.Panel implements it.
type Renderer interface {
	Render(ctx context.Context, content model.Content) error
	RenderUnavailable(ctx context.Context) error
	Sleep() error
}

// Sink receives every successfully fetched snapshot.
type Sink interface {
	Set(content model.Content)
}

// Options tune a Scheduler.
type Options struct {
	// StatePath is the state.yaml file; empty keeps state in memory only.
	StatePath string
	// UpdateInterval forces a redraw even without a count change.
	UpdateInterval time.Duration
	// RenderRetries is how many times a render is retried after a
	// hardware timeout or bus error. Negative disables retries.
	RenderRetries int
	// RetryBackoff is the first pause between render attempts; it doubles
	// on every retry.
	RetryBackoff time.Duration

	// Now and Wait are replaced in tests.
	Now  func() time.Time
	Wait func(ctx context.Context, d time.Duration) error
}

// Scheduler runs the check loop. Check, RunOnce and the cron job are
// serialised; the panel is never driven from two goroutines.
type Scheduler struct {
	fetch  Fetcher
	render Renderer
	sink   Sink
	opts   Options

	mu          sync.Mutex
	state       State
	hasData     bool
	unavailable bool

	intervalMu sync.RWMutex
	interval   time.Duration
}

// New builds a Scheduler and loads persisted state. A missing or broken
// state file starts from scratch.
func New(f Fetcher, r Renderer, sink Sink, opts Options) *Scheduler {
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = 6 * time.Hour
	}
	if opts.RenderRetries < 0 {
		opts.RenderRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Wait == nil {
		opts.Wait = wait
	}

	s := &Scheduler{
		fetch:    f,
		render:   r,
		sink:     sink,
		opts:     opts,
		state:    State{LastCount: -1},
		interval: opts.UpdateInterval,
	}
	if opts.StatePath != "" {
		st, err := LoadState(opts.StatePath)
		if err != nil {
			appLog.Warn("state file unreadable; starting fresh", "path", opts.StatePath, "err", err)
		} else {
			s.state = st
		}
	}
	return s
}

// SetUpdateInterval changes the forced redraw interval at runtime.
func (s *Scheduler) SetUpdateInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.intervalMu.Lock()
	s.interval = d
	s.intervalMu.Unlock()
	appLog.Info("update interval changed", "interval", d)
}

func (s *Scheduler) updateInterval() time.Duration {
	s.intervalMu.RLock()
	defer s.intervalMu.RUnlock()
	return s.interval
}

// State returns a copy of the persisted refresh state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Check runs one fetch and refreshes the panel when needed. It reports
// whether the panel was redrawn.
func (s *Scheduler) Check(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check(ctx, false)
}

// RunOnce fetches and redraws unconditionally.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.check(ctx, true)
	return err
}

func (s *Scheduler) check(ctx context.Context, force bool) (bool, error) {
	res, err := s.fetch.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, err
		}
		if s.unavailable || !force && (s.hasData || s.state.LastCount >= 0) {
			// The panel still shows the last good frame or the error screen.
			appLog.Error("content fetch failed; keeping current screen", err)
			return false, err
		}
		appLog.Error("content fetch failed; showing connection error", err)
		if rerr := s.withRetries(ctx, s.render.RenderUnavailable); rerr != nil {
			return false, errors.Join(err, rerr)
		}
		s.sleepPanel()
		s.unavailable = true
		s.state.LastCount = -1
		return true, err
	}

	content := res.Content
	s.hasData = true
	s.unavailable = false
	if s.sink != nil {
		s.sink.Set(content)
	}

	now := s.opts.Now()
	reason := s.reason(content.Count, now)
	if force {
		reason = "forced"
	}
	if reason == "" {
		appLog.Debug("no change; panel left untouched", "count", content.Count, "last_update", s.state.LastUpdate)
		return false, nil
	}

	appLog.Info("refreshing panel", "reason", reason, "count", content.Count, "last_count", s.state.LastCount)
	if err := s.withRetries(ctx, func(ctx context.Context) error {
		return s.render.Render(ctx, content)
	}); err != nil {
		return false, err
	}
	s.sleepPanel()

	s.state = State{LastCount: content.Count, LastUpdate: now}
	if s.opts.StatePath != "" {
		if err := SaveState(s.opts.StatePath, s.state); err != nil {
			appLog.Error("state save failed", err, "path", s.opts.StatePath)
		}
	}
	return true, nil
}

// reason returns why the panel needs a redraw, or "" when it does not.
func (s *Scheduler) reason(count int, now time.Time) string {
	switch {
	case count != s.state.LastCount:
		return "count changed"
	case s.state.LastUpdate.IsZero() || now.Sub(s.state.LastUpdate) >= s.updateInterval():
		return "interval elapsed"
	}
	return ""
}

// withRetries runs fn, retrying hardware timeouts and bus errors with
// doubling backoff.
func (s *Scheduler) withRetries(ctx context.Context, fn func(context.Context) error) error {
	backoff := s.opts.RetryBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || !retryable(err) || attempt >= s.opts.RenderRetries {
			break
		}
		appLog.Warn("render failed; retrying", "attempt", attempt+1, "backoff", backoff, "err", err)
		if werr := s.opts.Wait(ctx, backoff); werr != nil {
			return errors.Join(err, werr)
		}
		backoff *= 2
	}
	if err != nil {
		return fmt.Errorf("schedule: render: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, epd.ErrHardwareTimeout) || errors.Is(err, epd.ErrBusAccess)
}

func (s *Scheduler) sleepPanel() {
	if err := s.render.Sleep(); err != nil {
		appLog.Error("panel sleep failed", err)
	}
}

// Run performs an immediate check and then one per cron tick until ctx
// is done. Ticks that arrive while a check is still running are skipped.
func (s *Scheduler) Run(ctx context.Context, spec string) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("schedule: bad refresh spec %q: %w", spec, err)
	}

	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.Check(ctx); err != nil && ctx.Err() == nil {
			appLog.Debug("check finished with error", "err", err)
		}
	}))

	if _, err := s.Check(ctx); err != nil && ctx.Err() == nil {
		appLog.Debug("initial check finished with error", "err", err)
	}

	appLog.Info("scheduler started", "refresh", spec, "next", sched.Next(s.opts.Now()).Format(time.RFC3339))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("scheduler stopped")
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cronLogger routes cron's own messages through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
