package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// defaultJPEGQuality is used when a JPEG photo is re-encoded after resizing.
const defaultJPEGQuality = 85

// shrinkPhoto scales an image so its longer side is at most maxSize. It
// returns ok=false when the image already fits. JPEG input stays JPEG and
// every other format is re-encoded as PNG.
func shrinkPhoto(src io.Reader, maxSize, jpegQuality int) (data []byte, mimeType string, ok bool, err error) {
	if maxSize <= 0 {
		return nil, "", false, errors.New("max size must be positive")
	}

	srcImg, format, err := image.Decode(src)
	if err != nil {
		return nil, "", false, fmt.Errorf("decode image: %w", err)
	}

	bounds := srcImg.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, "", false, errors.New("invalid image dimensions")
	}
	if max(width, height) <= maxSize {
		return nil, "", false, nil
	}

	scale := float64(maxSize) / float64(max(width, height))
	newW := max(int(float64(width)*scale), 1)
	newH := max(int(float64(height)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), srcImg, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if format == "jpeg" {
		q := min(max(jpegQuality, 1), 100)
		if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
			return nil, "", false, err
		}
		return buf.Bytes(), "image/jpeg", true, nil
	}
	if err := png.Encode(&buf, dst); err != nil {
		return nil, "", false, err
	}
	return buf.Bytes(), "image/png", true, nil
}
