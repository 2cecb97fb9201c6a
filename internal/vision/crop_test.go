package vision

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestBoxRect(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)
	tests := []struct {
		name string
		box  Box
		want image.Rectangle
	}{
		{"centre", Box{Left: 0.25, Top: 0.5, Width: 0.5, Height: 0.25}, image.Rect(50, 50, 150, 75)},
		{"whole image", Box{Width: 1, Height: 1}, bounds},
		{"clipped at edge", Box{Left: 0.9, Top: 0.9, Width: 0.5, Height: 0.5}, image.Rect(180, 90, 200, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Rect(bounds); got != tt.want {
				t.Errorf("Rect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoxValid(t *testing.T) {
	tests := []struct {
		box  Box
		want bool
	}{
		{Box{Left: 0.1, Top: 0.1, Width: 0.2, Height: 0.2}, true},
		{Box{Width: 1, Height: 1}, true},
		{Box{Left: -0.1, Width: 0.2, Height: 0.2}, false},
		{Box{Left: 0.5, Width: 0.8, Height: 0.2}, false},
		{Box{Left: 0.1, Top: 0.1}, false},
	}
	for _, tt := range tests {
		if got := tt.box.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.box, got, tt.want)
		}
	}
}

func TestCropFace(t *testing.T) {
	data := encodeJPEG(createTestImage(400, 200, color.Gray{Y: 128}))

	crop, err := CropFace(data, Box{Left: 0.25, Top: 0.25, Width: 0.5, Height: 0.5})
	if err != nil {
		t.Fatalf("CropFace failed: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(crop))
	if err != nil {
		t.Fatalf("failed to decode crop: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg, got %s", format)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("expected 200x100 crop, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestCropFace_Errors(t *testing.T) {
	if _, err := CropFace([]byte("nope"), Box{Width: 1, Height: 1}); err == nil {
		t.Error("expected decode error")
	}

	data := encodeJPEG(createTestImage(10, 10, color.White))
	if _, err := CropFace(data, Box{Left: 1, Top: 1, Width: 0.5, Height: 0.5}); !errors.Is(err, ErrEmptyCrop) {
		t.Errorf("expected ErrEmptyCrop, got %v", err)
	}
}
