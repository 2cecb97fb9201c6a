// Package vision turns captured images into OCR lines and face boxes using a
// multimodal model.
package vision

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kozaktomas/gatex/internal/config"
)

// Box is a face bounding box as fractions of the image width and height.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the box lies within the unit square and has an area.
func (b Box) Valid() bool {
	return b.Left >= 0 && b.Top >= 0 && b.Width > 0 && b.Height > 0 &&
		b.Left+b.Width <= 1.0001 && b.Top+b.Height <= 1.0001
}

// Provider defines the interface for vision backends.
type Provider interface {
	Name() string
	// ExtractLines returns the text lines of an image, top to bottom.
	ExtractLines(ctx context.Context, image []byte) ([]string, error)
	// DetectFaceBox returns the most prominent face, or nil when there is none.
	DetectFaceBox(ctx context.Context, image []byte) (*Box, error)
	GetUsage() Usage
}

// Usage tracks token usage across calls.
type Usage struct {
	Requests     int
	InputTokens  int
	OutputTokens int
}

type usageTracker struct {
	mu    sync.Mutex
	usage Usage
}

func (u *usageTracker) track(inputTokens, outputTokens int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage.Requests++
	u.usage.InputTokens += inputTokens
	u.usage.OutputTokens += outputTokens
}

func (u *usageTracker) get() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.usage
}

// New creates the provider selected by cfg.Provider.
func New(ctx context.Context, cfg *config.VisionConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		if cfg.OpenAIToken == "" {
			return nil, fmt.Errorf("OPENAI_TOKEN is required for the openai vision provider")
		}
		return NewOpenAIProvider(cfg.OpenAIToken), nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini vision provider")
		}
		return NewGeminiProvider(ctx, cfg.GeminiKey)
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
}
