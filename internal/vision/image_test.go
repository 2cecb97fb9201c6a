package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func TestResizeImage(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxSize       int
		wantW, wantH  int
	}{
		{"no resize needed", 100, 100, 200, 100, 100},
		{"landscape", 2000, 1000, 500, 500, 250},
		{"portrait", 1000, 2000, 500, 250, 500},
		{"square", 1000, 1000, 200, 200, 200},
		{"exactly max size", 500, 500, 500, 500, 500},
		{"one dimension at max", 500, 300, 500, 500, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeJPEG(createTestImage(tt.width, tt.height, color.White))

			resized, err := ResizeImage(data, tt.maxSize)
			if err != nil {
				t.Fatalf("ResizeImage failed: %v", err)
			}

			img, format, err := image.Decode(bytes.NewReader(resized))
			if err != nil {
				t.Fatalf("failed to decode result: %v", err)
			}
			if format != "jpeg" {
				t.Errorf("expected jpeg format, got %s", format)
			}
			if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, b.Dx(), b.Dy())
			}
		})
	}
}

func TestResizeImage_PNGInput(t *testing.T) {
	resized, err := ResizeImage(encodePNG(createTestImage(100, 100, color.White)), 200)
	if err != nil {
		t.Fatalf("ResizeImage failed for PNG: %v", err)
	}
	if _, format, err := image.Decode(bytes.NewReader(resized)); err != nil || format != "jpeg" {
		t.Errorf("expected jpeg output, got %s (%v)", format, err)
	}
}

func TestResizeImage_InvalidData(t *testing.T) {
	for _, data := range [][]byte{[]byte("not an image"), {}} {
		if _, err := ResizeImage(data, 500); err == nil {
			t.Errorf("expected error for %q", data)
		}
	}
}
