package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/user/nextdoor-crawler/internal/repository"
)

const defaultMaxTokens = 1024

// Oracle answers chat requests through the Anthropic Messages API.
type Oracle struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewOracle builds an Oracle. The SDK's own retries are disabled; a failed
// call degrades the verdict instead.
func NewOracle(apiKey, model string, opts ...option.RequestOption) *Oracle {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &Oracle{
		client:    anthropic.NewClient(append(base, opts...)...),
		model:     model,
		maxTokens: defaultMaxTokens,
	}
}

func (o *Oracle) Chat(ctx context.Context, messages []repository.Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(o.model),
		MaxTokens: o.maxTokens,
	}
	for _, m := range messages {
		switch m.Role {
		case repository.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case repository.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	msg, err := o.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", repository.ErrOracleRateLimited, err)
		}
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
