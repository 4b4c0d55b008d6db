// Package gemini adapts google.golang.org/genai to the oracle port.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"plotpact/internal/oracle"
)

const DefaultModel = "gemini-2.5-flash"

type Oracle struct {
	client *genai.Client
	model  string
}

var _ oracle.Oracle = (*Oracle)(nil)

func New(ctx context.Context, apiKey, model string) (*Oracle, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Oracle{client: client, model: model}, nil
}

func (o *Oracle) Complete(ctx context.Context, req oracle.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := o.client.Models.GenerateContent(ctx, o.model, genai.Text(req.User), cfg)
	if err != nil {
		return "", classify(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", oracle.NewTransientError(errors.New("gemini returned an empty response"))
	}
	return text, nil
}

func classify(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		// transport-level failure
		return oracle.NewTransientError(err)
	}
	if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return oracle.NewTransientError(err)
	}
	return oracle.NewFatalError(err)
}
