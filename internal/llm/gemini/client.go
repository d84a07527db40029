package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"jobtracker-backend/internal/llm"
)

const providerName = "gemini"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Provider with the Gemini API.
type Client struct {
	models contentGenerator
}

// NewClient builds a Gemini API client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{models: gc.Models}, nil
}

func (c *Client) Name() string { return providerName }

// Generate sends one GenerateContent request.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Completion, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Mode == llm.ModeStructured {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return llm.Completion{}, classify(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return llm.Completion{}, &llm.ProviderError{Provider: providerName, Kind: llm.KindServer, Message: "response missing candidates"}
	}

	out := llm.Completion{
		Text:     resp.Text(),
		Provider: providerName,
		Model:    req.Model,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if fr := resp.Candidates[0].FinishReason; fr != "" {
		out.FinishReason = string(fr)
	}
	if u := resp.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
	}
	return out, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		pe := llm.ClassifyStatus(providerName, apiErr.Code, apiErr.Message, http.Header{})
		if apiErr.Status == "RESOURCE_EXHAUSTED" && strings.Contains(strings.ToLower(apiErr.Message), "quota") {
			pe.Kind = llm.KindQuota
		}
		pe.Err = err
		return pe
	}
	return llm.ClassifyTransport(providerName, err)
}

var _ llm.Provider = (*Client)(nil)
