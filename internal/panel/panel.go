// Package panel is the render API used by the scheduler: it owns the
// canvas, composes content onto it, rotates the planes into panel order
// and hands them to the display driver.
package panel

import (
	"context"
	"fmt"
	"image"
	"sync"

	"spacepanel/internal/canvas"
	"spacepanel/internal/convert"
	"spacepanel/internal/epd"
	"spacepanel/internal/layout"
	appLog "spacepanel/internal/log"
	"spacepanel/internal/model"
)

// Device is the part of *epd.Driver the panel needs.
type Device interface {
	Init(mode epd.RefreshMode) error
	Display(black, red []byte) error
	Clear(black, red byte) error
	Sleep() error
	State() epd.State
	Variant() epd.Variant
}

// Panel is not safe for concurrent rendering; only Snapshot may be called
// from other goroutines.
type Panel struct {
	dev  Device
	mode epd.RefreshMode

	canvas *canvas.Canvas
	phys   []*canvas.Bitmap

	mu   sync.RWMutex
	last *canvas.Canvas
}

// New builds a panel for dev. The logical canvas is the device's physical
// geometry transposed.
func New(dev Device, mode epd.RefreshMode) (*Panel, error) {
	v := dev.Variant()
	if mode == epd.Partial && !v.SupportsPartial() {
		return nil, fmt.Errorf("panel: %s does not support partial refresh", v.Name)
	}
	c, err := canvas.New(v.Height, v.Width, v.Planes)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	p := &Panel{dev: dev, mode: mode, canvas: c}
	for i := 0; i < v.Planes; i++ {
		p.phys = append(p.phys, canvas.NewBitmap(v.Width, v.Height))
	}
	return p, nil
}

// Render draws content and refreshes the panel. ctx is only checked
// before the transfer starts; a refresh in progress always runs to
// completion.
func (p *Panel) Render(ctx context.Context, content model.Content) error {
	layout.Compose(p.canvas, content)
	return p.show(ctx, "content", "count", content.Count)
}

// RenderUnavailable shows the connection error screen.
func (p *Panel) RenderUnavailable(ctx context.Context) error {
	layout.ComposeUnavailable(p.canvas)
	return p.show(ctx, "unavailable")
}

func (p *Panel) show(ctx context.Context, what string, kv ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.setLast(p.canvas.Clone())

	for i, dst := range p.phys {
		if err := convert.Rotate90(dst, p.canvas.Bitmap(canvas.Plane(i))); err != nil {
			return fmt.Errorf("panel: rotate %s plane: %w", canvas.Plane(i), err)
		}
	}
	if err := p.ready(); err != nil {
		return err
	}
	var red []byte
	if len(p.phys) > 1 {
		red = p.phys[canvas.Red].Pix
	}
	if err := p.dev.Display(p.phys[canvas.Black].Pix, red); err != nil {
		return fmt.Errorf("panel: display: %w", err)
	}
	appLog.Info("panel refreshed", append([]any{"screen", what, "mode", p.mode}, kv...)...)
	return nil
}

// Clear blanks the panel. It initialises the device first when needed,
// so it may be called in any state.
func (p *Panel) Clear() error {
	if err := p.ready(); err != nil {
		return err
	}
	if err := p.dev.Clear(0xFF, 0xFF); err != nil {
		return fmt.Errorf("panel: clear: %w", err)
	}
	p.setLast(nil)
	return nil
}

// Sleep puts the device into deep sleep. The next render re-initialises it.
func (p *Panel) Sleep() error {
	if err := p.dev.Sleep(); err != nil {
		return fmt.Errorf("panel: sleep: %w", err)
	}
	return nil
}

// Snapshot returns a preview of the last frame sent to the panel, or nil
// when nothing has been rendered yet.
func (p *Panel) Snapshot() *image.NRGBA {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	return convert.Preview(p.last)
}

func (p *Panel) setLast(c *canvas.Canvas) {
	p.mu.Lock()
	p.last = c
	p.mu.Unlock()
}

func (p *Panel) ready() error {
	if p.dev.State() == epd.Idle {
		return nil
	}
	if err := p.dev.Init(p.mode); err != nil {
		return fmt.Errorf("panel: init: %w", err)
	}
	return nil
}
