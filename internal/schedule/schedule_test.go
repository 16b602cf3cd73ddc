package schedule

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"spacepanel/internal/epd"
	"spacepanel/internal/model"
	"spacepanel/internal/source"
)

type fakeFetcher struct {
	count int
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context) (source.Result, error) {
	f.calls++
	if f.err != nil {
		return source.Result{}, f.err
	}
	c := model.Content{Count: f.count}
	for i := 0; i < f.count; i++ {
		c.Entries = append(c.Entries, model.Entry{Label: "ISS", Name: fmt.Sprint("P", i)})
	}
	return source.Result{Content: c}, nil
}

type fakeRenderer struct {
	calls []string
	// errs is consumed one per Render/RenderUnavailable call.
	errs []error
}

func (r *fakeRenderer) next() error {
	if len(r.errs) == 0 {
		return nil
	}
	err := r.errs[0]
	r.errs = r.errs[1:]
	return err
}

func (r *fakeRenderer) Render(_ context.Context, c model.Content) error {
	r.calls = append(r.calls, fmt.Sprint("render:", c.Count))
	return r.next()
}

func (r *fakeRenderer) RenderUnavailable(context.Context) error {
	r.calls = append(r.calls, "unavailable")
	return r.next()
}

func (r *fakeRenderer) Sleep() error {
	r.calls = append(r.calls, "sleep")
	return nil
}

type fakeSink struct{ last *model.Content }

func (s *fakeSink) Set(c model.Content) { s.last = &c }

type harness struct {
	f     *fakeFetcher
	r     *fakeRenderer
	sink  *fakeSink
	now   time.Time
	waits []time.Duration
	s     *Scheduler
}

func newHarness(t *testing.T, statePath string) *harness {
	t.Helper()
	h := &harness{
		f:    &fakeFetcher{count: 7},
		r:    &fakeRenderer{},
		sink: &fakeSink{},
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.s = New(h.f, h.r, h.sink, Options{
		StatePath:      statePath,
		UpdateInterval: 6 * time.Hour,
		RenderRetries:  2,
		RetryBackoff:   100 * time.Millisecond,
		Now:            func() time.Time { return h.now },
		Wait: func(_ context.Context, d time.Duration) error {
			h.waits = append(h.waits, d)
			return nil
		},
	})
	return h
}

func TestCheckRedrawPolicy(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()

	steps := []struct {
		name    string
		advance time.Duration
		count   int
		want    bool
	}{
		{"first check", 0, 7, true},
		{"same count", time.Minute, 7, false},
		{"count changed", time.Minute, 8, true},
		{"just before interval", 6*time.Hour - time.Second, 8, false},
		{"interval elapsed", time.Second, 8, true},
	}
	for _, st := range steps {
		h.now = h.now.Add(st.advance)
		h.f.count = st.count
		got, err := h.s.Check(ctx)
		if err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if got != st.want {
			t.Errorf("%s: redrawn = %v, want %v", st.name, got, st.want)
		}
		if h.sink.last == nil || h.sink.last.Count != st.count {
			t.Errorf("%s: sink not updated", st.name)
		}
	}
	if len(h.r.calls) != 6 {
		t.Errorf("renderer calls = %v", h.r.calls)
	}
}

func TestStatePersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	h := newHarness(t, path)
	if _, err := h.s.Check(context.Background()); err != nil {
		t.Fatal(err)
	}

	st, err := LoadState(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.LastCount != 7 || !st.LastUpdate.Equal(h.now) {
		t.Fatalf("saved state = %+v", st)
	}

	h2 := newHarness(t, path)
	h2.now = h.now.Add(time.Hour)
	redrawn, err := h2.s.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if redrawn {
		t.Error("restart redrew an unchanged panel")
	}
}

func TestRenderRetriesWithBackoff(t *testing.T) {
	h := newHarness(t, "")
	h.r.errs = []error{
		fmt.Errorf("wrapped: %w", epd.ErrHardwareTimeout),
		fmt.Errorf("wrapped: %w", epd.ErrBusAccess),
	}
	redrawn, err := h.s.Check(context.Background())
	if err != nil || !redrawn {
		t.Fatalf("Check = %v, %v", redrawn, err)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if fmt.Sprint(h.waits) != fmt.Sprint(want) {
		t.Errorf("waits = %v, want %v", h.waits, want)
	}
}

func TestRenderRetriesExhausted(t *testing.T) {
	h := newHarness(t, "")
	h.r.errs = []error{epd.ErrHardwareTimeout, epd.ErrHardwareTimeout, epd.ErrHardwareTimeout}
	_, err := h.s.Check(context.Background())
	if !errors.Is(err, epd.ErrHardwareTimeout) {
		t.Fatalf("err = %v, want ErrHardwareTimeout", err)
	}
	if h.s.State().LastCount != -1 {
		t.Error("state advanced after a failed render")
	}
}

func TestNonRetryableRenderError(t *testing.T) {
	h := newHarness(t, "")
	h.r.errs = []error{epd.ErrInvalidState}
	if _, err := h.s.Check(context.Background()); !errors.Is(err, epd.ErrInvalidState) {
		t.Fatalf("err = %v", err)
	}
	if len(h.waits) != 0 {
		t.Errorf("retried a non-retryable error: %v", h.waits)
	}
}

func TestFetchFailureShowsUnavailableOnce(t *testing.T) {
	h := newHarness(t, "")
	h.f.err = errors.New("offline")
	ctx := context.Background()

	if _, err := h.s.Check(ctx); err == nil {
		t.Fatal("expected fetch error")
	}
	if _, err := h.s.Check(ctx); err == nil {
		t.Fatal("expected fetch error")
	}
	if want := "[unavailable sleep]"; fmt.Sprint(h.r.calls) != want {
		t.Fatalf("calls = %v, want %s", h.r.calls, want)
	}

	h.f.err = nil
	if redrawn, err := h.s.Check(ctx); err != nil || !redrawn {
		t.Fatalf("recovery Check = %v, %v", redrawn, err)
	}
}

func TestFetchFailureKeepsGoodFrame(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	if _, err := h.s.Check(ctx); err != nil {
		t.Fatal(err)
	}
	h.f.err = errors.New("offline")
	if _, err := h.s.Check(ctx); err == nil {
		t.Fatal("expected fetch error")
	}
	for _, c := range h.r.calls {
		if c == "unavailable" {
			t.Fatalf("good frame replaced: %v", h.r.calls)
		}
	}
}

func TestRunOnceForcesRedraw(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	if _, err := h.s.Check(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.s.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if want := "[render:7 sleep render:7 sleep]"; fmt.Sprint(h.r.calls) != want {
		t.Errorf("calls = %v, want %s", h.r.calls, want)
	}
}

func TestSetUpdateInterval(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	if _, err := h.s.Check(ctx); err != nil {
		t.Fatal(err)
	}
	h.s.SetUpdateInterval(time.Hour)
	h.now = h.now.Add(time.Hour)
	if redrawn, _ := h.s.Check(ctx); !redrawn {
		t.Error("shorter interval did not trigger a redraw")
	}
}

func TestRunRejectsBadSpec(t *testing.T) {
	h := newHarness(t, "")
	if err := h.s.Run(context.Background(), "not a cron spec"); err == nil {
		t.Error("Run accepted a bad spec")
	}
}

func TestRunChecksImmediatelyAndStops(t *testing.T) {
	h := newHarness(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.s.Run(ctx, "@every 1h") }()

	deadline := time.After(5 * time.Second)
	for h.s.State().LastCount != 7 {
		select {
		case <-deadline:
			t.Fatal("initial check never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
