package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobtracker-backend/internal/llm"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
)

// Client implements llm.Provider using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client. The gateway bounds each call, so
// the HTTP client timeout is only a backstop.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

func (c *Client) Name() string { return providerName }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []chatMessage   `json:"messages"`
	Temperature         *float64        `json:"temperature,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Generate sends one chat completion request.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:               req.Model,
		Messages:            messages,
		MaxCompletionTokens: req.MaxTokens,
	}
	if req.Mode == llm.ModeStructured {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if !fixedTemperature(req.Model) {
		temp := req.Temperature
		body.Temperature = &temp
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Completion{}, &llm.ProviderError{Provider: providerName, Kind: llm.KindBadRequest, Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return llm.Completion{}, &llm.ProviderError{Provider: providerName, Kind: llm.KindBadRequest, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return llm.Completion{}, llm.ClassifyTransport(providerName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Completion{}, llm.ClassifyTransport(providerName, err)
	}

	var parsed chatResponse
	parseErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(raw))
		if parseErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
			if parsed.Error.Code == "insufficient_quota" {
				msg = "quota: " + msg
			}
		}
		return llm.Completion{}, llm.ClassifyStatus(providerName, resp.StatusCode, msg, resp.Header)
	}
	if parseErr != nil {
		return llm.Completion{}, &llm.ProviderError{Provider: providerName, Kind: llm.KindServer, StatusCode: resp.StatusCode, Message: "response parse", Err: parseErr}
	}
	if len(parsed.Choices) == 0 {
		return llm.Completion{}, &llm.ProviderError{Provider: providerName, Kind: llm.KindServer, StatusCode: resp.StatusCode, Message: "response missing choices"}
	}

	out := llm.Completion{
		Text:         parsed.Choices[0].Message.Content,
		Provider:     providerName,
		Model:        parsed.Model,
		FinishReason: parsed.Choices[0].FinishReason,
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	if parsed.Usage != nil {
		out.PromptTokens = parsed.Usage.PromptTokens
		out.CompletionTokens = parsed.Usage.CompletionTokens
	}
	return out, nil
}

// fixedTemperature reports models that reject a temperature parameter.
func fixedTemperature(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return strings.HasPrefix(m, "gpt-5") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
}

var _ llm.Provider = (*Client)(nil)
