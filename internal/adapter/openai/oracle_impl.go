package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/user/nextdoor-crawler/internal/repository"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Oracle talks to an OpenAI-compatible chat completions endpoint.
type Oracle struct {
	client *resty.Client
	model  string
}

// NewOracle creates an Oracle for baseURL, e.g. https://api.openai.com/v1.
func NewOracle(baseURL, apiKey, model string) *Oracle {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(60 * time.Second)
	return &Oracle{client: client, model: model}
}

func (o *Oracle) Chat(ctx context.Context, messages []repository.Message) (string, error) {
	body := chatRequest{Model: o.model}
	for _, m := range messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	var (
		result chatResponse
		failed apiError
	)
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&failed).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completions: %w", err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %s", repository.ErrOracleRateLimited, failed.Error.Message)
	}
	if resp.IsError() {
		return "", fmt.Errorf("chat completions: status %d: %s", resp.StatusCode(), failed.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat completions: empty choices")
	}
	return result.Choices[0].Message.Content, nil
}
