package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const chatModel = openai.ChatModelGPT4_1Mini

type OpenAIProvider struct {
	client *openai.Client
	usage  usageTracker
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client}
}

func (p *OpenAIProvider) Name() string {
	return chatModel
}

func (p *OpenAIProvider) GetUsage() Usage {
	return p.usage.get()
}

func (p *OpenAIProvider) ExtractLines(ctx context.Context, image []byte) ([]string, error) {
	var lines []string
	err := p.complete(ctx, extractLinesPrompt, image, "high", func(content string) (err error) {
		lines, err = parseLines(content)
		return err
	})
	return lines, err
}

func (p *OpenAIProvider) DetectFaceBox(ctx context.Context, image []byte) (*Box, error) {
	var box *Box
	err := p.complete(ctx, detectFacePrompt, image, "low", func(content string) (err error) {
		box, err = parseFace(content)
		return err
	})
	return box, err
}

// complete sends one image with a system prompt and feeds parse errors back
// to the model until parse succeeds or retries run out.
func (p *OpenAIProvider) complete(ctx context.Context, prompt string, image []byte, detail string, parse func(string) error) error {
	resized, err := ResizeImage(image, maxUploadSize)
	if err != nil {
		return fmt.Errorf("failed to resize image: %w", err)
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resized)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(prompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: detail,
						}),
					},
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    chatModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(800),
		})
		if err != nil {
			return fmt.Errorf("OpenAI API error: %w", err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("no response from OpenAI")
		}
		p.usage.track(int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))

		content := resp.Choices[0].Message.Content
		lastResponse = content

		if err := parse(content); err != nil {
			lastError = err
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(retryMessage(err)),
						},
					},
				},
			)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed to parse vision JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}
