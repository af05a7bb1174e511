package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ironsheep/screen-text-watch/internal/capture"
	"github.com/ironsheep/screen-text-watch/internal/config"
	"github.com/ironsheep/screen-text-watch/internal/metrics"
	"github.com/ironsheep/screen-text-watch/internal/monitor"
	"github.com/ironsheep/screen-text-watch/internal/ocr"
	"github.com/ironsheep/screen-text-watch/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v before flag parsing so they work without
	// any other arguments.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("screenwatch %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		x            = flag.Int("x", -1, "region left edge (overrides config)")
		y            = flag.Int("y", -1, "region top edge (overrides config)")
		width        = flag.Int("width", 0, "region width (overrides config)")
		height       = flag.Int("height", 0, "region height (overrides config)")
		intervalMS   = flag.Int("interval", 0, "tick interval in milliseconds (overrides config)")
		lang         = flag.String("lang", "", "Tesseract language code (overrides config)")
		addr         = flag.String("addr", "", "HTTP listen address (overrides config)")
		listDisplays = flag.Bool("list-displays", false, "print attached displays and exit")
		headless     = flag.Bool("headless", false, "no HTTP server; log events to stdout")
		debug        = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug || os.Getenv("SCREENWATCH_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	slog.Info("screenwatch starting", "version", Version, "commit", GitCommit)

	if *listDisplays {
		for _, d := range capture.Displays(capture.DefaultProvider()) {
			fmt.Printf("display %d: %dx%d at (%d,%d)\n", d.Index, d.Width, d.Height, d.X, d.Y)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cfg, *x, *y, *width, *height, *intervalMS, *lang, *addr)

	strategy, err := ocr.NewStrategy(cfg.Language)
	if err != nil {
		return fmt.Errorf("failed to init recognition: %w", err)
	}
	defer strategy.Close()

	m := metrics.New()
	monOpts := []monitor.Option{
		monitor.WithMetrics(m),
		monitor.WithMinDiffLen(cfg.MinDiffLen),
		monitor.WithEventBuffer(cfg.EventBuffer),
	}
	if cfg.HashSkip {
		monOpts = append(monOpts, monitor.WithHashSkip(cfg.HashMaxDistance))
	}
	mon := monitor.New(strategy, monOpts...)

	if cfg.RegionSet() {
		if err := mon.Start(cfg.Region, cfg.Interval()); err != nil {
			return fmt.Errorf("failed to start monitor: %w", err)
		}
	} else if *headless {
		return errors.New("headless mode needs a region (flags, env, or config file)")
	} else {
		slog.Info("no region configured, waiting for start over the API")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *headless {
		logEvents(ctx, mon)
	} else {
		if err := serve(ctx, mon, cfg, m); err != nil {
			return err
		}
	}

	if err := mon.Stop(); err != nil && !errors.Is(err, monitor.ErrNotRunning) {
		slog.Error("failed to stop monitor", "error", err)
	}
	mon.Wait()
	slog.Info("screenwatch stopped")
	return nil
}

func applyFlags(cfg *config.Config, x, y, width, height, intervalMS int, lang, addr string) {
	if x >= 0 {
		cfg.Region.X = x
	}
	if y >= 0 {
		cfg.Region.Y = y
	}
	if width > 0 {
		cfg.Region.Width = width
	}
	if height > 0 {
		cfg.Region.Height = height
	}
	if intervalMS > 0 {
		cfg.IntervalMS = intervalMS
	}
	if lang != "" {
		cfg.Language = lang
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}
}

// logEvents prints the event stream until the context is canceled.
func logEvents(ctx context.Context, mon *monitor.Monitor) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-mon.Events():
			switch e := ev.(type) {
			case monitor.NewText:
				slog.Info("new text", "text", e.Text)
			case monitor.TextChanged:
				slog.Info("text changed", "old", e.Old, "new", e.New)
			case monitor.TextCleared:
				slog.Info("text cleared", "old", e.Old)
			case monitor.DiffDetected:
				slog.Info("diff", "added", e.Added, "removed", e.Removed)
			case monitor.Error:
				slog.Warn("monitor error", "message", e.Message)
			}
		}
	}
}

// serve runs the HTTP server until the context is canceled, then shuts it
// down gracefully.
func serve(ctx context.Context, mon *monitor.Monitor, cfg *config.Config, m *metrics.Metrics) error {
	srv := server.New(mon, cfg, m, capture.DefaultProvider())
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	return nil
}
