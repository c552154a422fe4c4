package video

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// jpegQuality for re-encoded downscaled frames.
const jpegQuality = 80

// Downscale shrinks a JPEG frame whose width exceeds maxWidth, preserving
// aspect ratio. Frames at or under the cap, and frames that are not
// decodable images (e.g. H264 access units), pass through untouched.
func Downscale(frame *Frame, maxWidth int) (*Frame, error) {
	if maxWidth <= 0 || (frame.Width > 0 && frame.Width <= maxWidth) {
		return frame, nil
	}

	src, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		// Not a decodable image: pass through.
		return frame, nil
	}
	bounds := src.Bounds()
	if bounds.Dx() <= maxWidth {
		return frame, nil
	}

	width, height := ScaledSize(bounds.Dx(), bounds.Dy(), maxWidth)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode downscaled frame: %w", err)
	}
	return &Frame{Data: buf.Bytes(), Width: width, Height: height}, nil
}

// ScaledSize computes the target dimensions for a width cap, preserving
// aspect ratio: 1280x720 capped at 640 yields 640x360.
func ScaledSize(width, height, maxWidth int) (int, int) {
	if width <= maxWidth {
		return width, height
	}
	return maxWidth, height * maxWidth / width
}
