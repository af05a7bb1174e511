// Package capture grabs pixel regions from the local display.
//
// A Region is validated before the operating system is asked for pixels, so
// misconfigured coordinates fail fast with a descriptive error instead of a
// provider-specific one. The default Provider is backed by the screenshot
// library; tests substitute their own.
package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

const (
	// MaxDim caps region width and height to bound per-tick memory.
	MaxDim = 2048

	// MaxVirtualWidth and MaxVirtualHeight bound the region's origin.
	// Generous enough for common multi-monitor layouts.
	MaxVirtualWidth  = 5120
	MaxVirtualHeight = 2880
)

// ErrNoDisplay is returned when no active display is attached.
var ErrNoDisplay = errors.New("no active display found")

// Region is a rectangle on the display, origin at the top-left corner.
type Region struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// RegionError reports a region that failed validation.
type RegionError struct {
	Field  string
	Region Region
	Reason string
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("invalid region %dx%d at (%d,%d): %s %s",
		e.Region.Width, e.Region.Height, e.Region.X, e.Region.Y, e.Field, e.Reason)
}

// Validate checks the region against display bounds. The zero-value region
// is invalid; width and height must be positive and no larger than MaxDim,
// and the origin must lie inside the virtual desktop. A region may extend
// past the desktop edge; the provider reports that at capture time.
func (r Region) Validate() error {
	switch {
	case r.X < 0:
		return &RegionError{Field: "x", Region: r, Reason: "must be non-negative"}
	case r.Y < 0:
		return &RegionError{Field: "y", Region: r, Reason: "must be non-negative"}
	case r.Width <= 0:
		return &RegionError{Field: "width", Region: r, Reason: "must be positive"}
	case r.Height <= 0:
		return &RegionError{Field: "height", Region: r, Reason: "must be positive"}
	case r.Width > MaxDim:
		return &RegionError{Field: "width", Region: r, Reason: fmt.Sprintf("exceeds maximum %d", MaxDim)}
	case r.Height > MaxDim:
		return &RegionError{Field: "height", Region: r, Reason: fmt.Sprintf("exceeds maximum %d", MaxDim)}
	case r.X > MaxVirtualWidth:
		return &RegionError{Field: "x", Region: r, Reason: fmt.Sprintf("exceeds virtual desktop width %d", MaxVirtualWidth)}
	case r.Y > MaxVirtualHeight:
		return &RegionError{Field: "y", Region: r, Reason: fmt.Sprintf("exceeds virtual desktop height %d", MaxVirtualHeight)}
	}
	return nil
}

// Rect returns the region as an image.Rectangle in screen coordinates.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Provider supplies raw pixels for screen rectangles.
type Provider interface {
	// NumDisplays reports the number of active displays.
	NumDisplays() int
	// DisplayBounds returns the bounds of display index i in virtual
	// desktop coordinates.
	DisplayBounds(i int) image.Rectangle
	// CaptureRect grabs the given rectangle into a fresh RGBA buffer.
	CaptureRect(rect image.Rectangle) (*image.RGBA, error)
}

type screenProvider struct{}

func (screenProvider) NumDisplays() int { return screenshot.NumActiveDisplays() }

func (screenProvider) DisplayBounds(i int) image.Rectangle {
	return screenshot.GetDisplayBounds(i)
}

func (screenProvider) CaptureRect(rect image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(rect)
}

// DefaultProvider returns the Provider backed by the operating system.
func DefaultProvider() Provider { return screenProvider{} }

// Capturer grabs a fixed region of the screen on demand.
type Capturer struct {
	region   Region
	provider Provider
}

// New returns a Capturer for the given region using the OS-backed provider.
func New(region Region) *Capturer {
	return NewWithProvider(region, DefaultProvider())
}

// NewWithProvider returns a Capturer that reads pixels from p.
func NewWithProvider(region Region, p Provider) *Capturer {
	return &Capturer{region: region, provider: p}
}

// Region returns the configured capture region.
func (c *Capturer) Region() Region { return c.region }

// Capture validates the region and grabs it from the display. The returned
// buffer is freshly allocated on every call and safe to mutate. The provider
// is never touched when validation fails.
func (c *Capturer) Capture() (*image.RGBA, error) {
	if err := c.region.Validate(); err != nil {
		return nil, err
	}
	if c.provider.NumDisplays() == 0 {
		return nil, ErrNoDisplay
	}

	img, err := c.provider.CaptureRect(c.region.Rect())
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	if got := img.Bounds(); got.Dx() != c.region.Width || got.Dy() != c.region.Height {
		return nil, fmt.Errorf("capture returned %dx%d, want %dx%d",
			got.Dx(), got.Dy(), c.region.Width, c.region.Height)
	}
	return img, nil
}

// DisplayInfo describes one attached display.
type DisplayInfo struct {
	Index  int `json:"index"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Displays enumerates the attached displays in index order.
func Displays(p Provider) []DisplayInfo {
	n := p.NumDisplays()
	infos := make([]DisplayInfo, 0, n)
	for i := 0; i < n; i++ {
		b := p.DisplayBounds(i)
		infos = append(infos, DisplayInfo{
			Index:  i,
			X:      b.Min.X,
			Y:      b.Min.Y,
			Width:  b.Dx(),
			Height: b.Dy(),
		})
	}
	return infos
}

// CaptureDisplay grabs the entire display with the given index.
func CaptureDisplay(p Provider, index int) (*image.RGBA, error) {
	n := p.NumDisplays()
	if n == 0 {
		return nil, ErrNoDisplay
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("display index %d out of range [0,%d)", index, n)
	}
	img, err := p.CaptureRect(p.DisplayBounds(index))
	if err != nil {
		return nil, fmt.Errorf("failed to capture display %d: %w", index, err)
	}
	return img, nil
}
