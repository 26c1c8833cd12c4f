// Package llm provides the Anthropic API integration for aide agents: a
// client wrapper with token tracking, conversion between the engine's
// conversation model and SDK types, and the model selection policy.
package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/aide-sh/aide/pkg/models"
)

// Stop reasons the driver branches on.
const (
	StopEndTurn = "end_turn"
	StopToolUse = "tool_use"
)

// Request is one model call: system instructions, the full conversation
// history, and the tool registry.
type Request struct {
	Model     string
	System    string
	Messages  []models.Message
	Tools     []anthropic.ToolUnionParam
	MaxTokens int64
}

// Response is the decoded model reply.
type Response struct {
	StopReason   string
	Blocks       []models.ContentBlock
	InputTokens  int64
	OutputTokens int64
}

// Caller is the surface the conversation driver depends on. The concrete
// Client implements it; tests substitute scripted responses.
type Caller interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Client wraps the Anthropic SDK client with token tracking.
type Client struct {
	inner   anthropic.Client
	tracker *TokenTracker
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseBedrock routes requests through AWS Bedrock.
	UseBedrock bool
	AWSRegion  string
	AWSProfile string
}

// NewClient creates a new Anthropic API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseBedrock {
		ctx := context.Background()
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &Client{
		inner:   anthropic.NewClient(opts...),
		tracker: NewTokenTracker(),
	}, nil
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// Complete sends one request and decodes the reply into engine types.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: toMessageParams(req.Messages),
		Tools:    req.Tools,
	})
	if err != nil {
		return nil, err
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	out := &Response{
		StopReason:   string(resp.StopReason),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Blocks = append(out.Blocks, models.ContentBlock{
				Kind: models.BlockText,
				Text: variant.Text,
			})
		case anthropic.ToolUseBlock:
			out.Blocks = append(out.Blocks, models.ContentBlock{
				Kind:      models.BlockToolUse,
				ToolUseID: variant.ID,
				ToolName:  variant.Name,
				ToolInput: variant.Input,
			})
		}
	}
	return out, nil
}

// toMessageParams converts the engine's conversation history into SDK
// message params. The history is replayed verbatim every turn.
func toMessageParams(messages []models.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			switch b.Kind {
			case models.BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case models.BlockToolUse:
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolUseID, b.ToolInput, b.ToolName))
			case models.BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Text, b.IsError))
			case models.BlockImage:
				blocks = append(blocks, anthropic.NewImageBlockBase64(
					b.ImageMediaType, base64.StdEncoding.EncodeToString(b.ImageData)))
			}
		}
		if m.Role == models.RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(blocks...))
		} else {
			params = append(params, anthropic.NewUserMessage(blocks...))
		}
	}
	return params
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Cost estimates the cost in USD of all tracked usage.
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return EstimateCost(t.inputTok, t.outputTok)
}

// EstimateCost converts token counts to USD at current pricing.
// Approximate; update as pricing changes.
func EstimateCost(input, output int64) float64 {
	inputCost := float64(input) / 1_000_000 * 3.0
	outputCost := float64(output) / 1_000_000 * 15.0
	return inputCost + outputCost
}
