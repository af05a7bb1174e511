// Package ocr recognizes text in captured frames using Tesseract.
//
// Recognition runs as rounds: a Strategy launches several concurrent
// attempts over the same frame, each with its own engine instance, and
// reconciles their output line by line. Disagreements between attempts are
// settled by majority vote; single stray misreads cancel out across the
// round instead of surfacing as spurious change events.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr
//   - macOS: brew install tesseract
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// # Engine Lifecycle
//
// Every engine call builds a fresh native Tesseract client and closes it
// before returning. Long-lived clients accumulate state across images and
// eventually misbehave; with recognition dominated by the engine itself,
// client churn is noise. Images reach the engine as transient BMP files in
// a per-Strategy temp directory, uniquely named so concurrent attempts
// never collide, and removed as soon as the call returns.
//
// # Fallback Chain
//
// An attempt first recognizes the full preprocessed image. If the engine
// errors, it retries once with a small nearest-neighbor downscale of the
// original capture, which occasionally succeeds where the full image made
// the engine choke. Only when both passes fail does the attempt count as
// failed; a round with no successful attempt returns ErrAllAttemptsFailed.
package ocr
