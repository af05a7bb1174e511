package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is the Tesseract language pack used when none is configured.
const DefaultLanguage = "eng"

// Engine performs a single recognition pass over an encoded image file.
//
// Implementations must be safe to discard after one call; the Strategy
// creates a fresh Engine for every attempt.
type Engine interface {
	Recognize(path string) (string, error)
}

// TesseractEngine drives Tesseract through gosseract. Every Recognize call
// builds a fresh native client and closes it before returning: the native
// engine accumulates state across images and reusing a client across frames
// eventually corrupts it.
type TesseractEngine struct {
	// Language is the Tesseract language code, e.g. "eng" or "deu".
	// Empty means DefaultLanguage.
	Language string
}

// Recognize runs one Tesseract pass over the image at path.
//
// The client is configured for a uniform block of text (screen regions are
// not full pages) with inter-word spacing preserved, since downstream
// diffing is line- and whitespace-sensitive.
func (e *TesseractEngine) Recognize(path string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	lang := e.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	if err := client.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("failed to set language %q: %w", lang, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
		return "", fmt.Errorf("failed to set engine variable: %w", err)
	}

	if err := client.SetImage(path); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}
