// Package pngcheck inspects rendered PNG files.
package pngcheck

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // Register the PNG decoder.
	"os"
)

var (
	// ErrInvalidFuzzPercent is returned for a fuzz outside 0..100.
	ErrInvalidFuzzPercent = errors.New("fuzz percentage must be between 0 and 100")
	// ErrInvalidThreshold is returned for a threshold outside 0.0..1.0.
	ErrInvalidThreshold = errors.New(
		"non-white threshold must be between 0.0 and 1.0",
	)
	// ErrImageZeroPixels is returned for an image with an empty bounds rectangle.
	ErrImageZeroPixels = errors.New("image has zero pixels")
)

const (
	percentToRatio = 100.0
	maxColorValue  = 255.0
)

// Result describes how much of an image is not white.
type Result struct {
	NonWhiteRatio float64
	Blank         bool
}

// Analyze decodes the PNG at path and reports whether it is blank: fewer than
// threshold of its pixels fall outside fuzzPercent of pure white.
func Analyze(path string, fuzzPercent int, threshold float64) (Result, error) {
	if fuzzPercent < 0 || fuzzPercent > 100 {
		return Result{}, fmt.Errorf("got %d: %w", fuzzPercent, ErrInvalidFuzzPercent)
	}

	if threshold < 0 || threshold > 1.0 {
		return Result{}, fmt.Errorf("got %f: %w", threshold, ErrInvalidThreshold)
	}

	img, err := loadImage(path)
	if err != nil {
		return Result{}, err
	}

	bounds := img.Bounds()

	totalPixels := float64(bounds.Dx() * bounds.Dy())
	if totalPixels == 0 {
		return Result{}, ErrImageZeroPixels
	}

	fuzzFactor := float64(fuzzPercent) / percentToRatio
	ratio := countNonWhitePixels(img, fuzzFactor) / totalPixels

	return Result{NonWhiteRatio: ratio, Blank: ratio < threshold}, nil
}

// loadImage opens and decodes an image file.
func loadImage(filePath string) (image.Image, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("could not open file %s: %w", filePath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf(
			"could not decode image file %s: %w",
			filePath,
			err,
		)
	}

	return img, nil
}

func countNonWhitePixels(img image.Image, fuzzFactor float64) float64 {
	nonWhiteCount := 0.0
	whiteThreshold := uint32((1.0 - fuzzFactor) * maxColorValue)

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if isNonWhite(img.At(x, y), whiteThreshold) {
				nonWhiteCount++
			}
		}
	}

	return nonWhiteCount
}

// isNonWhite checks if a single pixel's color is considered non-white.
func isNonWhite(c color.Color, whiteThreshold uint32) bool {
	// RGBA returns 16-bit pre-multiplied channels; compare on 8 bits.
	r, g, b, _ := c.RGBA()

	const bitsToShift = 8

	r8, g8, b8 := r>>bitsToShift, g>>bitsToShift, b>>bitsToShift

	return r8 < whiteThreshold || g8 < whiteThreshold || b8 < whiteThreshold
}
