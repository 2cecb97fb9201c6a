package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrEmptyCrop is returned when a face box covers no pixels of the image.
var ErrEmptyCrop = errors.New("face box is outside the image")

// CropFace cuts box out of an encoded image and returns the crop as JPEG.
// Box coordinates are fractions of the image size.
func CropFace(data []byte, box Box) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	rect := box.Rect(img.Bounds())
	if rect.Empty() {
		return nil, ErrEmptyCrop
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Crop(img, rect), imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode face crop: %w", err)
	}
	return buf.Bytes(), nil
}

// Rect converts the fractional box to pixel coordinates within bounds.
func (b Box) Rect(bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	left := bounds.Min.X + int(b.Left*w)
	top := bounds.Min.Y + int(b.Top*h)
	r := image.Rect(left, top, left+int(b.Width*w), top+int(b.Height*h))
	return r.Intersect(bounds)
}
