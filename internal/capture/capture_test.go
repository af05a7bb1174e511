package capture

import (
	"errors"
	"fmt"
	"image"
	"testing"
)

type mockProvider struct {
	displays []image.Rectangle
	captures int
	err      error
	resize   image.Rectangle // if non-empty, returned instead of the requested rect
}

func (m *mockProvider) NumDisplays() int { return len(m.displays) }

func (m *mockProvider) DisplayBounds(i int) image.Rectangle { return m.displays[i] }

func (m *mockProvider) CaptureRect(rect image.Rectangle) (*image.RGBA, error) {
	m.captures++
	if m.err != nil {
		return nil, m.err
	}
	if !m.resize.Empty() {
		rect = m.resize
	}
	return image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy())), nil
}

func singleDisplay() *mockProvider {
	return &mockProvider{displays: []image.Rectangle{image.Rect(0, 0, 1920, 1080)}}
}

func TestRegionValidate(t *testing.T) {
	tests := []struct {
		name      string
		region    Region
		wantField string
	}{
		{"valid small", Region{X: 0, Y: 0, Width: 1, Height: 1}, ""},
		{"valid typical", Region{X: 100, Y: 200, Width: 800, Height: 600}, ""},
		{"valid max size", Region{X: 0, Y: 0, Width: 2048, Height: 2048}, ""},
		{"valid at far edge", Region{X: 5120 - 100, Y: 2880 - 100, Width: 100, Height: 100}, ""},
		{"valid extending past desktop edge", Region{X: 5100, Y: 2800, Width: 100, Height: 100}, ""},
		{"valid origin at desktop corner", Region{X: 5120, Y: 2880, Width: 10, Height: 10}, ""},
		{"negative x", Region{X: -1, Y: 0, Width: 10, Height: 10}, "x"},
		{"negative y", Region{X: 0, Y: -1, Width: 10, Height: 10}, "y"},
		{"zero width", Region{X: 0, Y: 0, Width: 0, Height: 10}, "width"},
		{"zero height", Region{X: 0, Y: 0, Width: 10, Height: 0}, "height"},
		{"negative width", Region{X: 0, Y: 0, Width: -5, Height: 10}, "width"},
		{"width over max", Region{X: 0, Y: 0, Width: 2049, Height: 10}, "width"},
		{"height over max", Region{X: 0, Y: 0, Width: 10, Height: 2049}, "height"},
		{"origin x past desktop", Region{X: 5121, Y: 0, Width: 100, Height: 100}, "x"},
		{"origin y past desktop", Region{X: 0, Y: 2881, Width: 100, Height: 100}, "y"},
		{"zero value", Region{}, "width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.region.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var re *RegionError
			if !errors.As(err, &re) {
				t.Fatalf("Validate() = %v, want *RegionError", err)
			}
			if re.Field != tt.wantField {
				t.Errorf("field = %q, want %q", re.Field, tt.wantField)
			}
		})
	}
}

func TestCapture_InvalidRegionSkipsProvider(t *testing.T) {
	p := singleDisplay()
	c := NewWithProvider(Region{X: -1, Y: 0, Width: 10, Height: 10}, p)

	if _, err := c.Capture(); err == nil {
		t.Fatal("Capture should fail for invalid region")
	}
	if p.captures != 0 {
		t.Errorf("provider was called %d times, want 0", p.captures)
	}
}

func TestCapture_NoDisplay(t *testing.T) {
	p := &mockProvider{}
	c := NewWithProvider(Region{X: 0, Y: 0, Width: 10, Height: 10}, p)

	if _, err := c.Capture(); !errors.Is(err, ErrNoDisplay) {
		t.Fatalf("Capture() error = %v, want ErrNoDisplay", err)
	}
	if p.captures != 0 {
		t.Errorf("provider capture was called %d times, want 0", p.captures)
	}
}

func TestCapture_ReturnsExactSize(t *testing.T) {
	p := singleDisplay()
	c := NewWithProvider(Region{X: 10, Y: 20, Width: 300, Height: 150}, p)

	img, err := c.Capture()
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 150 {
		t.Errorf("dimensions: got %dx%d, want 300x150", b.Dx(), b.Dy())
	}
}

func TestCapture_SizeMismatch(t *testing.T) {
	p := singleDisplay()
	p.resize = image.Rect(0, 0, 100, 100)
	c := NewWithProvider(Region{X: 0, Y: 0, Width: 300, Height: 150}, p)

	if _, err := c.Capture(); err == nil {
		t.Fatal("Capture should fail when the provider returns wrong dimensions")
	}
}

func TestCapture_ProviderError(t *testing.T) {
	p := singleDisplay()
	p.err = fmt.Errorf("x connection lost")
	c := NewWithProvider(Region{X: 0, Y: 0, Width: 10, Height: 10}, p)

	_, err := c.Capture()
	if err == nil {
		t.Fatal("Capture should surface provider errors")
	}
	if !errors.Is(err, p.err) {
		t.Errorf("error %v should wrap provider error", err)
	}
}

func TestCapture_FreshBufferEachCall(t *testing.T) {
	p := singleDisplay()
	c := NewWithProvider(Region{X: 0, Y: 0, Width: 8, Height: 8}, p)

	a, err := c.Capture()
	if err != nil {
		t.Fatalf("first Capture failed: %v", err)
	}
	b, err := c.Capture()
	if err != nil {
		t.Fatalf("second Capture failed: %v", err)
	}
	if &a.Pix[0] == &b.Pix[0] {
		t.Error("consecutive captures share a pixel buffer")
	}
}

func TestDisplays(t *testing.T) {
	p := &mockProvider{displays: []image.Rectangle{
		image.Rect(0, 0, 1920, 1080),
		image.Rect(1920, 0, 1920+1280, 1024),
	}}

	infos := Displays(p)
	if len(infos) != 2 {
		t.Fatalf("got %d displays, want 2", len(infos))
	}
	if infos[1].X != 1920 || infos[1].Width != 1280 || infos[1].Height != 1024 {
		t.Errorf("second display = %+v, want x=1920 1280x1024", infos[1])
	}
}

func TestCaptureDisplay(t *testing.T) {
	p := singleDisplay()

	img, err := CaptureDisplay(p, 0)
	if err != nil {
		t.Fatalf("CaptureDisplay failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1920 || b.Dy() != 1080 {
		t.Errorf("dimensions: got %dx%d, want 1920x1080", b.Dx(), b.Dy())
	}

	if _, err := CaptureDisplay(p, 1); err == nil {
		t.Error("CaptureDisplay should fail for out-of-range index")
	}
	if _, err := CaptureDisplay(&mockProvider{}, 0); !errors.Is(err, ErrNoDisplay) {
		t.Errorf("error = %v, want ErrNoDisplay", err)
	}
}
