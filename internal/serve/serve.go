// Package serve runs the local preview: it serves the generated site over
// HTTP, rebuilds on source changes, and optionally rebuilds on an interval so
// remote images stay fresh.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/site"
)

// debounceQuiet is the quiet window after the last filesystem event before a
// rebuild fires.
const debounceQuiet = 250 * time.Millisecond

// Options configures the preview server.
type Options struct {
	Port            int
	RebuildInterval time.Duration // 0 disables periodic rebuilds
}

// Run builds the site and serves it until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	generator, err := site.NewGenerator(cfg, "")
	if err != nil {
		return err
	}
	generator.WithRecorder(recorder)

	// Initial build; serve stale output on failure so errors are fixable live.
	if _, err := generator.GenerateSite(ctx); err != nil {
		slog.Error("Initial build failed", logfields.Error(err))
	}

	server, err := startHTTPServer(generator.OutputDir(), registry, opts.Port)
	if err != nil {
		return err
	}

	watcher, err := setupWatcher(cfg.Source.Directory)
	if err != nil {
		_ = server.Close()
		return err
	}
	defer func() { _ = watcher.Close() }()

	rebuildReq, trigger, stopTrigger := setupRebuildDebouncer()
	startRebuildWorker(ctx, generator, rebuildReq)

	scheduler, err := startPeriodicRebuilds(opts.RebuildInterval, rebuildReq)
	if err != nil {
		_ = server.Close()
		return err
	}

	err = runLoop(ctx, watcher, trigger)

	if scheduler != nil {
		if serr := scheduler.Shutdown(); serr != nil {
			slog.Warn("Scheduler shutdown error", logfields.Error(serr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		slog.Warn("HTTP server shutdown error", logfields.Error(serr))
	}
	// A debounce timer armed by a last-moment file event must not fire into a
	// closed channel.
	stopTrigger()
	close(rebuildReq)
	return err
}

func startHTTPServer(outputDir string, registry *prom.Registry, port int) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(registry))
	mux.Handle("/", http.FileServer(http.Dir(outputDir)))

	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", logfields.Error(err))
		}
	}()

	slog.Info("Preview server listening", slog.Int("port", port), logfields.URL(fmt.Sprintf("http://localhost:%d", port)))
	return server, nil
}

func setupWatcher(sourceDir string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := watcher.Add(sourceDir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", sourceDir, err)
	}
	return watcher, nil
}

// setupRebuildDebouncer creates the rebuild channel, a trigger function that
// coalesces bursts of filesystem events, and a stop function. stop must be
// called before the channel is closed; afterwards neither a pending timer nor
// a late trigger will send.
func setupRebuildDebouncer() (chan struct{}, func(), func()) {
	var mu sync.Mutex
	var timer *time.Timer
	var stopped bool
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceQuiet, func() {
			// The send shares the mutex with stop, so a timer that races
			// shutdown observes stopped instead of a closed channel.
			mu.Lock()
			defer mu.Unlock()
			if stopped {
				return
			}
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}

	stop := func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
	}

	return rebuildReq, trigger, stop
}

// startRebuildWorker processes rebuild requests one at a time; a request
// arriving mid-build queues exactly one follow-up build.
func startRebuildWorker(ctx context.Context, generator *site.Generator, rebuildReq chan struct{}) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-rebuildReq:
				if !ok {
					return
				}
				slog.Info("Change detected; rebuilding site")
				if _, err := generator.GenerateSite(ctx); err != nil {
					slog.Warn("Rebuild failed", logfields.Error(err))
				}
			}
		}
	}()
}

// startPeriodicRebuilds schedules interval rebuilds via gocron. Returns nil
// when interval is zero.
func startPeriodicRebuilds(interval time.Duration, rebuildReq chan struct{}) (gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		}),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule periodic rebuild: %w", err)
	}
	scheduler.Start()
	slog.Info("Periodic rebuild scheduled", slog.Duration("interval", interval))
	return scheduler, nil
}

func runLoop(ctx context.Context, watcher *fsnotify.Watcher, trigger func()) error {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down preview server...")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldIgnoreEvent(ev.Name) {
				continue
			}
			slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	// Editor temp/swap files.
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) {
		return true
	}
	if base == "Thumbs.db" {
		return true
	}

	return false
}
