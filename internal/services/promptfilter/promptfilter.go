package promptfilter

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You review prompts for an image generation service.
Given a positive and a negative prompt, decide whether the request is
acceptable. Reject prompts that sexualize minors, depict real people in
compromising situations, or request graphic violence. Respond with a JSON
object: {"accepted": bool, "reason": string}.`

type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

// Filter screens prompts through an OpenAI model before they reach the
// diffusion worker. It is only constructed when an API key is configured.
type Filter struct {
	client *openai.Client
}

func New(apiKey string) (*Filter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	return &Filter{
		client: openai.NewClient(apiKey),
	}, nil
}

func (f *Filter) Evaluate(ctx context.Context, positivePrompt, negativePrompt string) (*Verdict, error) {
	resp, err := f.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       openai.GPT4oMini,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Positive prompt: %s", positivePrompt)},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Negative prompt: %s", negativePrompt)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("prompt filter request failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("could not evaluate prompt")
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &verdict); err != nil {
		return nil, fmt.Errorf("could not parse filter response: %w", err)
	}

	return &verdict, nil
}
