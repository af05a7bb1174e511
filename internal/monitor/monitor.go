// Package monitor runs the capture, preprocess, recognize, diff loop and
// publishes change events.
package monitor

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/ironsheep/screen-text-watch/internal/capture"
	"github.com/ironsheep/screen-text-watch/internal/imaging"
	"github.com/ironsheep/screen-text-watch/internal/metrics"
	"github.com/ironsheep/screen-text-watch/internal/textdiff"
)

// DefaultInterval is the tick cadence used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// DefaultEventBuffer is the event channel capacity. When the consumer falls
// this far behind, further events are dropped with a debug log.
const DefaultEventBuffer = 64

var (
	// ErrAlreadyRunning is returned by Start while a watch is active.
	ErrAlreadyRunning = errors.New("monitor already running")

	// ErrNotRunning is returned by Stop when no watch is active.
	ErrNotRunning = errors.New("monitor not running")
)

// Source supplies one frame per call.
type Source interface {
	Capture() (*image.RGBA, error)
}

// Recognizer turns a frame into text. processed is the OCR-prepared image,
// original the raw capture for fallback passes.
type Recognizer interface {
	Recognize(ctx context.Context, processed *image.Gray, original image.Image) (string, error)
}

// Preprocessor prepares a frame for recognition.
type Preprocessor func(image.Image) (*image.Gray, error)

// Option configures a Monitor at construction.
type Option func(*Monitor)

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.buffer = n
		}
	}
}

// WithMinDiffLen sets the minimum line length for diff events.
func WithMinDiffLen(n int) Option {
	return func(m *Monitor) { m.minDiffLen = n }
}

// WithHashSkip enables perceptual-hash frame skipping: frames whose hash is
// within maxDistance bits of the previous frame bypass recognition.
func WithHashSkip(maxDistance int) Option {
	return func(m *Monitor) {
		m.hashSkip = true
		m.hashMax = maxDistance
	}
}

// WithMetrics uses the given collectors instead of a private set.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

// WithSourceFactory replaces the screen-backed frame source.
func WithSourceFactory(f func(capture.Region) Source) Option {
	return func(m *Monitor) { m.newSource = f }
}

// WithPreprocessor replaces the default preprocessing pipeline.
func WithPreprocessor(p Preprocessor) Option {
	return func(m *Monitor) { m.preprocess = p }
}

// Monitor watches one screen region for text changes. Start and Stop may be
// called from any goroutine; all pipeline state is owned by the single loop
// goroutine.
type Monitor struct {
	newSource  func(capture.Region) Source
	preprocess Preprocessor
	recognizer Recognizer
	metrics    *metrics.Metrics
	minDiffLen int
	buffer     int
	hashSkip   bool
	hashMax    int

	events chan Event

	mu       sync.Mutex
	running  bool
	stopFlag *atomic.Bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New builds an idle Monitor around the given recognizer.
func New(r Recognizer, opts ...Option) *Monitor {
	m := &Monitor{
		newSource:  func(reg capture.Region) Source { return capture.New(reg) },
		preprocess: imaging.Preprocess,
		recognizer: r,
		minDiffLen: textdiff.DefaultMinLen,
		buffer:     DefaultEventBuffer,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	m.events = make(chan Event, m.buffer)
	return m
}

// Events is the stream of change notifications. The channel is never
// closed; it outlives individual Start/Stop cycles.
func (m *Monitor) Events() <-chan Event { return m.events }

// Running reports whether a watch is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start begins watching the region at the given cadence. The region is
// validated first; an invalid region is returned to the caller and never
// reaches the loop. Non-positive intervals fall back to DefaultInterval.
// Per-run snapshot state is reset, so a restarted watch re-reports its
// first text as new. If a previous run's loop is still finishing a round,
// Start blocks until it has exited; there is never more than one loop.
func (m *Monitor) Start(region capture.Region, interval time.Duration) error {
	if err := region.Validate(); err != nil {
		return err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	// Join the previous loop first: Stop returns while an in-flight round
	// may still be finishing, and at most one loop goroutine may exist.
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	prev := m.doneCh
	m.mu.Unlock()
	if prev != nil {
		<-prev
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrAlreadyRunning
	}

	m.running = true
	m.stopFlag = &atomic.Bool{}
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	slog.Info("monitor starting",
		"x", region.X, "y", region.Y,
		"width", region.Width, "height", region.Height,
		"interval", interval)
	go m.loop(m.newSource(region), interval, m.stopFlag, m.stopCh, m.doneCh)
	return nil
}

// Stop signals the loop to exit. It does not wait for an in-flight round;
// use Wait for that. Worst-case loop exit latency is one interval plus one
// recognition round.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrNotRunning
	}

	m.running = false
	m.stopFlag.Store(true)
	close(m.stopCh)
	slog.Info("monitor stopping")
	return nil
}

// Wait blocks until the loop goroutine from the most recent Start has
// exited. Returns immediately if the monitor never started.
func (m *Monitor) Wait() {
	m.mu.Lock()
	done := m.doneCh
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// loopState is owned by the loop goroutine; nothing else reads or writes it.
type loopState struct {
	lastText *string
	lastHash *goimagehash.ImageHash
}

func (m *Monitor) loop(src Source, interval time.Duration, stop *atomic.Bool, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var st loopState
	for {
		if stop.Load() {
			return
		}
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
		// Re-check after the wait so a stop during the sleep skips the
		// round entirely.
		if stop.Load() {
			return
		}
		m.tick(src, &st)
	}
}

// tick runs one capture-to-diff round. Every failure becomes an Error event
// and the loop carries on at its fixed cadence; there is no backoff.
func (m *Monitor) tick(src Source, st *loopState) {
	m.metrics.Ticks.Add(1)

	frame, err := src.Capture()
	if err != nil {
		m.metrics.CaptureErrors.Add(1)
		slog.Error("capture failed", "error", err)
		m.emit(Error{Message: "capture failed: " + err.Error()})
		return
	}

	var frameHash *goimagehash.ImageHash
	if m.hashSkip {
		frameHash = hashFrame(frame)
		if m.skipFrame(st, frameHash) {
			m.metrics.FramesSkipped.Add(1)
			slog.Debug("frame visually unchanged, skipping recognition")
			return
		}
	}

	processed, err := m.preprocess(frame)
	if err != nil {
		m.metrics.PreprocessErrors.Add(1)
		slog.Error("preprocess failed", "error", err)
		m.emit(Error{Message: "preprocess failed: " + err.Error()})
		return
	}

	start := time.Now()
	text, err := m.recognizer.Recognize(context.Background(), processed, frame)
	m.metrics.ObserveRound(time.Since(start))
	if err != nil {
		m.metrics.RecognizeErrors.Add(1)
		slog.Error("recognition failed", "error", err)
		m.emit(Error{Message: "recognition failed: " + err.Error()})
		return
	}

	// The hash is committed only after a successful round. A failed round
	// on a static screen must keep retrying at the fixed cadence; skipping
	// against a hash from a tick that reported nothing would silence the
	// text forever.
	st.lastHash = frameHash

	switch res := textdiff.Diff(st.lastText, text, m.minDiffLen); res.Kind {
	case textdiff.None:
	case textdiff.New:
		slog.Info("text appeared", "chars", len(text))
		m.emit(NewText{Text: text})
		st.lastText = &text
	case textdiff.Cleared:
		slog.Info("text cleared")
		m.emit(TextCleared{Old: *st.lastText})
		st.lastText = nil
	case textdiff.Changed:
		slog.Info("text changed", "added", len(res.Added), "removed", len(res.Removed))
		if len(res.Added) > 0 || len(res.Removed) > 0 {
			m.emit(DiffDetected{Added: res.Added, Removed: res.Removed})
		}
		m.emit(TextChanged{Old: *st.lastText, New: text})
		st.lastText = &text
	}
}

// hashFrame computes the frame's perceptual hash. Hash failures return nil,
// which never matches, so recognition still runs.
func hashFrame(frame image.Image) *goimagehash.ImageHash {
	hash, err := goimagehash.PerceptionHash(frame)
	if err != nil {
		slog.Debug("frame hash failed", "error", err)
		return nil
	}
	return hash
}

// skipFrame reports whether hash matches the last successfully recognized
// frame closely enough to skip the round.
func (m *Monitor) skipFrame(st *loopState, hash *goimagehash.ImageHash) bool {
	if hash == nil || st.lastHash == nil {
		return false
	}
	dist, err := hash.Distance(st.lastHash)
	if err != nil {
		return false
	}
	return dist <= m.hashMax
}

// emit delivers ev without ever blocking the loop.
func (m *Monitor) emit(ev Event) {
	select {
	case m.events <- ev:
		m.metrics.EventsEmitted.Add(1)
	default:
		m.metrics.EventsDropped.Add(1)
		slog.Debug("event channel full, dropping event", "kind", ev.Kind())
	}
}
