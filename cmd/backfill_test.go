package cmd

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.jpeg", true},
		{"a.JPG", true},
		{"a.png", true},
		{"a.bmp", true},
		{"a.txt", false},
		{"jpeg", false},
	}
	for _, tt := range tests {
		if got := isImageFile(tt.name); got != tt.want {
			t.Errorf("isImageFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCaptureOrder(t *testing.T) {
	files := []string{
		"/x/notes.jpeg",
		"/x/000111batch2camera1_2024_03_05_12_00_00.jpeg",
		"/y/000111batch1camera3_2024_03_05_10_00_05.jpeg",
		"/x/000111batch1camera1_2024_03_05_10_00_05.jpeg",
		"/x/000111batch1camera2_2024_03_05_09_59_59.jpeg",
	}
	captureOrder(files)

	want := []string{
		"/x/000111batch1camera2_2024_03_05_09_59_59.jpeg",
		"/x/000111batch1camera1_2024_03_05_10_00_05.jpeg",
		"/y/000111batch1camera3_2024_03_05_10_00_05.jpeg",
		"/x/000111batch2camera1_2024_03_05_12_00_00.jpeg",
		"/x/notes.jpeg",
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("captureOrder() =\n%v\nwant\n%v", files, want)
	}
}

func TestCollectImages(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{
		filepath.Join(dir, "a.jpeg"),
		filepath.Join(dir, "readme.txt"),
		filepath.Join(sub, "b.jpg"),
	} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	flat, err := collectImages([]string{dir}, false)
	if err != nil {
		t.Fatalf("collectImages() error = %v", err)
	}
	if len(flat) != 1 {
		t.Errorf("non-recursive: got %v, want only a.jpeg", flat)
	}

	all, err := collectImages([]string{dir}, true)
	if err != nil {
		t.Fatalf("collectImages() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("recursive: got %v, want a.jpeg and sub/b.jpg", all)
	}

	if _, err := collectImages([]string{filepath.Join(dir, "a.jpeg")}, false); err == nil {
		t.Error("expected error for a file path")
	}
}

func TestSetLogLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		setLogLevel(tt.in)
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("setLogLevel(%q): level = %v, want %v", tt.in, got, tt.want)
		}
	}
}
