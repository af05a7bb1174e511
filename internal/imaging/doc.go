// Package imaging prepares captured screen frames for text recognition.
//
// The single entry point is Preprocess, which runs a fixed pipeline tuned
// for small regions of rendered UI text: grayscale conversion, conditional
// upscaling, histogram equalization, median denoising, and unsharp
// sharpening. The pipeline is deterministic and never mutates its input.
//
// # Pipeline Stages
//
// Stages always run in the same order:
//
//  1. Size check: dimensions must be positive and at most MaxInputDim
//  2. Grayscale: luminance-weighted conversion to 8-bit gray
//  3. Upscale: images narrower than TargetWidth are enlarged with Lanczos
//     resampling; the factor is clamped to [MinScale, MaxScale] and the
//     stage is skipped when the result would exceed MaxUpscaleDim
//  4. Equalize: gray levels are remapped through the cumulative histogram
//     so low-contrast captures use the full 0-255 range
//  5. Denoise: 3x3 median filter over interior pixels
//  6. Sharpen: 3x3 unsharp kernel over interior pixels, clamped to [0,255]
//
// # Border Policy
//
// The two kernel stages leave the one-pixel border ring untouched and read
// all neighborhoods from the stage's input buffer, never from partially
// written output. Text of interest is essentially never flush against the
// region edge, so nothing is lost to the simpler policy.
//
// # Error Handling
//
// Failures are reported as *StageError naming the stage that rejected the
// frame. With valid dimensions the pipeline cannot fail.
package imaging
