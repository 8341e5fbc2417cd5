package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const openAISystemPrompt = `You find the icon of web sites. Search the web for the site's own favicon,
touch icon or logo mark and return a direct image URL via the submit_icon_url function.
Prefer large, square images served from the site's own domain.`

// OpenAIClient implements Client using OpenAI function calling.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI-powered icon finder.
func NewOpenAIClient(apiKey string, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (o *OpenAIClient) ProviderName() string { return "openai" }
func (o *OpenAIClient) ModelName() string    { return o.model }

func (o *OpenAIClient) FindIconURL(ctx context.Context, pageURL string) (*IconSearchResult, error) {
	tools := []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        submitToolName,
				Description: "Submit the icon URL found for the web page. Call this once you have the best icon URL.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": submitToolProperties(),
					"required":   []string{"icon_url", "confidence"},
				},
			},
		},
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: openAISystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildPrompt(pageURL)},
	}

	for turn := 0; turn < maxTurns; turn++ {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    o.model,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return nil, fmt.Errorf("openai API call: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("openai returned no choices")
		}

		choice := resp.Choices[0]
		if len(choice.Message.ToolCalls) == 0 {
			if choice.FinishReason == "stop" {
				return nil, fmt.Errorf("%w: openai ended the conversation for %s", ErrNoIconFound, pageURL)
			}
			continue
		}

		messages = append(messages, choice.Message)
		for _, call := range choice.Message.ToolCalls {
			if call.Function.Name == submitToolName {
				return parseSubmission([]byte(call.Function.Arguments), pageURL)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    "Received. Please continue and call " + submitToolName + " with the icon URL.",
				ToolCallID: call.ID,
			})
		}
	}

	return nil, fmt.Errorf("%w: exceeded %d turns for %s", ErrNoIconFound, maxTurns, pageURL)
}
