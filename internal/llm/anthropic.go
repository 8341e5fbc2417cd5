package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// AnthropicClient implements Client using Claude with its built-in web search.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a new Claude-powered icon finder.
func NewAnthropicClient(apiKey string, model string) *AnthropicClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicClient{
		client: &client,
		model:  model,
	}
}

func (a *AnthropicClient) ProviderName() string { return "anthropic" }
func (a *AnthropicClient) ModelName() string    { return a.model }

func (a *AnthropicClient) FindIconURL(ctx context.Context, pageURL string) (*IconSearchResult, error) {
	submitTool := anthropic.ToolParam{
		Name:        submitToolName,
		Description: param.NewOpt("Submit the icon URL you found. Call this once you have the best icon URL for the page."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: submitToolProperties(),
		},
	}

	// web_search runs server side; only submit_icon_url comes back to us.
	tools := []anthropic.ToolUnionParam{
		{OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{}},
		{OfTool: &submitTool},
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(pageURL))),
	}

	// Agent loop: each turn sends the whole conversation so far. Claude may
	// run several web searches (executed by Anthropic and returned inline),
	// then calls submit_icon_url with its answer. A turn that ends without
	// that call is fed back with tool results so the model keeps going, up to
	// maxTurns.
	for turn := 0; turn < maxTurns; turn++ {
		message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: 1024,
			Messages:  messages,
			Tools:     tools,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic API call: %w", err)
		}

		for _, block := range message.Content {
			toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
			if !ok || toolUse.Name != submitToolName {
				continue
			}
			raw, err := json.Marshal(toolUse.Input)
			if err != nil {
				return nil, fmt.Errorf("marshaling tool input: %w", err)
			}
			return parseSubmission(raw, pageURL)
		}

		if message.StopReason == "end_turn" {
			return nil, fmt.Errorf("%w: claude ended the conversation for %s", ErrNoIconFound, pageURL)
		}

		// The assistant turn must be echoed back verbatim, tool_use blocks
		// included, or the API rejects the tool results that follow.
		messages = append(messages, message.ToParam())

		// Answer any other client tool call so the conversation can continue.
		var toolResults []anthropic.ContentBlockParamUnion
		for _, block := range message.Content {
			toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
			if !ok || toolUse.Name == "web_search" {
				continue
			}
			toolResults = append(toolResults,
				anthropic.NewToolResultBlock(toolUse.ID, "Received, please continue searching.", false))
		}
		if len(toolResults) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResults...))
		}
	}

	return nil, fmt.Errorf("%w: exceeded %d turns for %s", ErrNoIconFound, maxTurns, pageURL)
}
