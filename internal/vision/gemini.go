package vision

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	client *genai.Client
	usage  usageTracker
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

func (p *GeminiProvider) GetUsage() Usage {
	return p.usage.get()
}

func (p *GeminiProvider) ExtractLines(ctx context.Context, image []byte) ([]string, error) {
	var lines []string
	err := p.complete(ctx, extractLinesPrompt, image, func(content string) (err error) {
		lines, err = parseLines(content)
		return err
	})
	return lines, err
}

func (p *GeminiProvider) DetectFaceBox(ctx context.Context, image []byte) (*Box, error) {
	var box *Box
	err := p.complete(ctx, detectFacePrompt, image, func(content string) (err error) {
		box, err = parseFace(content)
		return err
	})
	return box, err
}

func (p *GeminiProvider) complete(ctx context.Context, prompt string, image []byte, parse func(string) error) error {
	resized, err := ResizeImage(image, maxUploadSize)
	if err != nil {
		return fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return fmt.Errorf("gemini API error: %w", err)
		}
		if result.UsageMetadata != nil {
			p.usage.track(int(result.UsageMetadata.PromptTokenCount), int(result.UsageMetadata.CandidatesTokenCount))
		}

		content := result.Text()
		if content == "" {
			return errors.New("no response from Gemini")
		}
		lastResponse = content

		if err := parse(content); err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: retryMessage(err)}},
				},
			)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed to parse vision JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}
