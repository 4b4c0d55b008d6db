// Package openai adapts github.com/sashabaranov/go-openai to the oracle
// port. Any OpenAI-compatible endpoint works through BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"plotpact/internal/oracle"
)

const DefaultModel = goopenai.GPT4oMini

type Oracle struct {
	client *goopenai.Client
	model  string
}

var _ oracle.Oracle = (*Oracle)(nil)

func New(apiKey, baseURL, model string) (*Oracle, error) {
	if strings.TrimSpace(apiKey) == "" && baseURL == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Oracle{client: goopenai.NewClientWithConfig(cfg), model: model}, nil
}

func (o *Oracle) Complete(ctx context.Context, req oracle.Request) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.User})

	body := goopenai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	}
	if req.JSON {
		body.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := o.client.CreateChatCompletion(ctx, body)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", oracle.NewTransientError(errors.New("openai returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return oracle.NewTransientError(err)
	}
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return oracle.NewTransientError(err)
	}
	return oracle.NewFatalError(err)
}
