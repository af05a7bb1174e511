package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/anthonynsimon/bild/transform"
	"github.com/google/uuid"
	"golang.org/x/image/bmp"
	"golang.org/x/sync/errgroup"
)

const (
	// AttemptsPerRound is the number of independent recognition attempts
	// reconciled by majority vote.
	AttemptsPerRound = 3

	// Fallback downscale dimensions. When the full processed image fails,
	// a tiny nearest-neighbor rendition of the original sometimes still
	// recognizes; a wrong-but-something result beats a dead round.
	fallbackWidth  = 200
	fallbackHeight = 100
)

var (
	// ErrAllAttemptsFailed is returned when no attempt in a round
	// produced non-empty text.
	ErrAllAttemptsFailed = errors.New("all recognition attempts failed")

	// ErrAllMethodsFailed marks a single attempt whose full-image pass
	// and downscale fallback both failed.
	ErrAllMethodsFailed = errors.New("all recognition methods failed")
)

// Strategy runs recognition rounds: several concurrent engine attempts over
// the same frame, reconciled line-by-line into one result.
type Strategy struct {
	newEngine func() Engine
	tempDir   string
	attempts  int
}

// NewStrategy returns a Strategy that recognizes with Tesseract in the
// given language. Transient image artifacts live in a private temp
// directory removed by Close.
func NewStrategy(language string) (*Strategy, error) {
	return NewStrategyWithEngine(func() Engine {
		return &TesseractEngine{Language: language}
	})
}

// NewStrategyWithEngine is NewStrategy with a custom engine constructor.
// The constructor is invoked once per attempt; attempts run concurrently.
func NewStrategyWithEngine(newEngine func() Engine) (*Strategy, error) {
	dir, err := os.MkdirTemp("", "screenwatch-ocr-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &Strategy{
		newEngine: newEngine,
		tempDir:   dir,
		attempts:  AttemptsPerRound,
	}, nil
}

// Close removes the strategy's temp directory.
func (s *Strategy) Close() error {
	return os.RemoveAll(s.tempDir)
}

// Recognize runs one round over a frame. processed is the OCR-prepared
// image; original is the raw capture, used only for the downscale fallback.
//
// Attempts run concurrently, each with its own engine and artifact paths.
// Results are normalized, then:
//
//	0 non-empty successes -> ErrAllAttemptsFailed
//	1 non-empty success   -> returned verbatim
//	2+                    -> line-wise majority vote
func (s *Strategy) Recognize(ctx context.Context, processed *image.Gray, original image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	results := make([]string, s.attempts)
	succeeded := make([]bool, s.attempts)

	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < s.attempts; i++ {
		g.Go(func() error {
			start := time.Now()
			text, err := s.attempt(processed, original)
			if err != nil {
				slog.Debug("recognition attempt failed",
					"attempt", i, "elapsed", time.Since(start), "error", err)
				return nil
			}
			slog.Debug("recognition attempt done",
				"attempt", i, "elapsed", time.Since(start), "chars", len(text))
			if t := Normalize(text); t != "" {
				results[i] = t
				succeeded[i] = true
			}
			return nil
		})
	}
	// Attempt errors are swallowed above; Wait only propagates panics in
	// practice, but keep the contract honest.
	if err := g.Wait(); err != nil {
		return "", err
	}

	texts := make([]string, 0, s.attempts)
	for i, ok := range succeeded {
		if ok {
			texts = append(texts, results[i])
		}
	}

	switch len(texts) {
	case 0:
		return "", ErrAllAttemptsFailed
	case 1:
		return texts[0], nil
	default:
		return voteLines(texts), nil
	}
}

// attempt is one engine try: full processed image first, then a 200x100
// nearest-neighbor downscale of the original capture.
func (s *Strategy) attempt(processed *image.Gray, original image.Image) (string, error) {
	engine := s.newEngine()

	text, fullErr := s.recognizeImage(engine, processed)
	if fullErr == nil {
		return text, nil
	}
	slog.Debug("full-image recognition failed, trying downscale fallback", "error", fullErr)

	small := transform.Resize(original, fallbackWidth, fallbackHeight, transform.NearestNeighbor)
	text, smallErr := s.recognizeImage(engine, small)
	if smallErr != nil {
		return "", fmt.Errorf("%w: full image: %v; downscaled: %v",
			ErrAllMethodsFailed, fullErr, smallErr)
	}
	return text, nil
}

// recognizeImage writes img to a uniquely named transient BMP and hands the
// path to the engine. The artifact is removed unconditionally.
func (s *Strategy) recognizeImage(engine Engine, img image.Image) (string, error) {
	path := filepath.Join(s.tempDir, "frame-"+uuid.NewString()+".bmp")
	if err := writeBMP(path, img); err != nil {
		return "", err
	}
	defer os.Remove(path)
	return engine.Recognize(path)
}

func writeBMP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create temp image: %w", err)
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp image: %w", err)
	}
	return nil
}
