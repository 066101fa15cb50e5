// Package media prepares captured video frames for transport: scaling to
// the endpoint's size limits and encoding to JPEG.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// MIMETypeJPEG is the mime type attached to outbound video frames.
const MIMETypeJPEG = "image/jpeg"

// Default frame encoding values.
const (
	DefaultMaxWidth  = 1024
	DefaultMaxHeight = 1024
	DefaultQuality   = 85
	MinQuality       = 10
	qualityDecay     = 0.9
)

// FrameConfig configures frame scaling and encoding.
type FrameConfig struct {
	// MaxWidth is the maximum frame width in pixels (0 = no limit).
	MaxWidth int

	// MaxHeight is the maximum frame height in pixels (0 = no limit).
	MaxHeight int

	// MaxSizeBytes is the maximum encoded size in bytes (0 = no limit).
	// If exceeded, quality is reduced iteratively down to MinQuality.
	MaxSizeBytes int64

	// Quality is the JPEG encoding quality (1-100). Default: 85.
	Quality int
}

// DefaultFrameConfig returns sensible defaults for 1fps screen or camera
// frames sent alongside audio.
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		MaxWidth:  DefaultMaxWidth,
		MaxHeight: DefaultMaxHeight,
		Quality:   DefaultQuality,
	}
}

// EncodeFrame scales img to fit within the configured dimensions
// (preserving aspect ratio) and encodes it as JPEG. When MaxSizeBytes is
// set and the encoded frame exceeds it, the quality is decayed in steps
// until the frame fits or MinQuality is reached.
func EncodeFrame(img image.Image, cfg FrameConfig) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("nil frame")
	}

	quality := cfg.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	bounds := img.Bounds()
	width, height := targetDimensions(bounds.Dx(), bounds.Dy(), cfg.MaxWidth, cfg.MaxHeight)

	if width != bounds.Dx() || height != bounds.Dy() {
		img = scaleFrame(img, width, height)
	}

	encoded, err := encodeJPEG(img, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	if cfg.MaxSizeBytes > 0 && int64(len(encoded)) > cfg.MaxSizeBytes {
		encoded, err = reduceToFitSize(img, quality, cfg.MaxSizeBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to reduce frame size: %w", err)
		}
	}

	return encoded, nil
}

// targetDimensions shrinks (never grows) the source dimensions to fit the
// configured maximums while preserving aspect ratio.
func targetDimensions(origWidth, origHeight, maxWidth, maxHeight int) (int, int) {
	width, height := origWidth, origHeight

	if maxWidth > 0 && width > maxWidth {
		ratio := float64(maxWidth) / float64(width)
		width = maxWidth
		height = int(float64(height) * ratio)
	}
	if maxHeight > 0 && height > maxHeight {
		ratio := float64(maxHeight) / float64(height)
		height = maxHeight
		width = int(float64(width) * ratio)
	}

	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

// scaleFrame performs the actual downscale using high-quality scaling.
func scaleFrame(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	// CatmullRom gives good quality at 1fps frame rates where encode cost is negligible
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// reduceToFitSize iteratively reduces quality to fit within the size limit.
func reduceToFitSize(img image.Image, startQuality int, maxSize int64) ([]byte, error) {
	quality := startQuality

	for quality >= MinQuality {
		encoded, err := encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if int64(len(encoded)) <= maxSize {
			return encoded, nil
		}
		quality = int(float64(quality) * qualityDecay)
	}

	// Return at minimum quality even if still over size
	return encodeJPEG(img, MinQuality)
}
