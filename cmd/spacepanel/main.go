package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"periph.io/x/conn/v3/physic"

	"spacepanel/internal/battery"
	"spacepanel/internal/canvas"
	"spacepanel/internal/config"
	"spacepanel/internal/convert"
	"spacepanel/internal/epd"
	"spacepanel/internal/layout"
	appLog "spacepanel/internal/log"
	"spacepanel/internal/model"
	"spacepanel/internal/panel"
	"spacepanel/internal/schedule"
	"spacepanel/internal/source"
	"spacepanel/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	renderOnly bool
	dump       bool
	clear      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("spacepanel starting", "version", version)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
		"update_interval_hours", conf.UpdateIntervalHours,
		"variant", conf.Display.Variant,
		"refresh_mode", conf.Display.RefreshMode,
		"state_dir", conf.StateDir,
		"once", flags.once,
		"render_only", flags.renderOnly,
		"dump", flags.dump,
		"clear", flags.clear,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("spacepanel failed", err)
		os.Exit(1)
	}
	appLog.Info("spacepanel exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	variant, err := epd.VariantByName(conf.Display.Variant)
	if err != nil {
		return err
	}
	fetcher := source.NewFetcher(conf.APIURL, filepath.Join(conf.StateDir, "http-cache"), conf.FetchRetries)

	if flags.renderOnly {
		res, err := fetcher.Fetch(ctx)
		if err != nil {
			return err
		}
		return writeArtifacts(conf.StateDir, variant, res.Content, flags.dump)
	}

	drv, err := openDisplay(conf, variant)
	if err != nil {
		return err
	}
	defer func() {
		if err := drv.Close(); err != nil {
			appLog.Error("display close failed", err)
		}
	}()

	mode, err := epd.ParseRefreshMode(conf.Display.RefreshMode)
	if err != nil {
		return err
	}
	pnl, err := panel.New(drv, mode)
	if err != nil {
		return err
	}

	if flags.clear {
		if err := pnl.Clear(); err != nil {
			return err
		}
		return pnl.Sleep()
	}

	store := &web.Store{}
	sched := schedule.New(fetcher, pnl, store, schedule.Options{
		StatePath:      filepath.Join(conf.StateDir, "state.yaml"),
		UpdateInterval: time.Duration(conf.UpdateIntervalHours) * time.Hour,
		RenderRetries:  conf.Display.RenderRetries,
		RetryBackoff:   time.Duration(conf.Display.RetryBackoffMs) * time.Millisecond,
	})

	if flags.once {
		if err := sched.RunOnce(ctx); err != nil {
			return err
		}
		if flags.dump {
			if content, _, ok := store.Latest(); ok {
				return writeArtifacts(conf.StateDir, variant, content, true)
			}
		}
		return nil
	}

	srv := web.NewServer(conf, web.Options{
		ConfigPath:       flags.configPath,
		Store:            store,
		Preview:          pnl,
		Battery:          battery.FromConfig(conf.Battery),
		OnIntervalChange: sched.SetUpdateInterval,
	})

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := srv.Serve(runCtx); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := sched.Run(runCtx, conf.RefreshCron); err != nil {
			errCh <- fmt.Errorf("scheduler: %w", err)
		}
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
	}
	// Either half failing stops the other; the panel must be idle before
	// it is put to sleep.
	stop()
	wg.Wait()

	if serr := pnl.Sleep(); serr != nil {
		appLog.Error("panel sleep on shutdown failed", serr)
	}
	return err
}

func openDisplay(conf *config.Config, v epd.Variant) (*epd.Driver, error) {
	d := conf.Display
	hw := epd.HardwareConfig{
		SPIPort: d.SPIPort,
		SPIFreq: physic.Frequency(d.SPIHz) * physic.Hertz,
		Pins: epd.PinNames{
			Reset: d.Pins.Reset,
			DC:    d.Pins.DC,
			CS:    d.Pins.CS,
			Busy:  d.Pins.Busy,
		},
	}
	return epd.Open(hw, v, epd.Options{
		BusyTimeout: time.Duration(d.BusyTimeoutSec) * time.Second,
	})
}

// writeArtifacts renders content without hardware into dir: always
// preview.png, plus the panel-order planes black.bin / red.bin when dump
// is set.
func writeArtifacts(dir string, v epd.Variant, content model.Content, dump bool) error {
	c, err := canvas.New(layout.Width, layout.Height, v.Planes)
	if err != nil {
		return err
	}
	layout.Compose(c, content)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	previewPath := filepath.Join(dir, "preview.png")
	f, err := os.Create(previewPath)
	if err != nil {
		return err
	}
	if err := png.Encode(f, convert.Preview(c)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	appLog.Info("preview written", "path", previewPath, "count", content.Count)

	if !dump {
		return nil
	}
	names := []string{"black.bin", "red.bin"}
	for i := 0; i < c.Planes(); i++ {
		phys := convert.Portrait(c.Bitmap(canvas.Plane(i)))
		path := filepath.Join(dir, names[i])
		if err := os.WriteFile(path, phys.Pix, 0o644); err != nil {
			return err
		}
		appLog.Info("plane dumped", "path", path, "bytes", len(phys.Pix))
	}
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.DefaultPath, "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one fetch+render cycle and exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Render preview.png only; do not touch display hardware")
	flag.BoolVar(&cfg.dump, "dump", false, "Dump debug artifacts (black.bin, red.bin, preview.png) to the state dir")
	flag.BoolVar(&cfg.clear, "clear", false, "Clear the panel, put it to sleep and exit")

	flag.Parse()

	return cfg
}
