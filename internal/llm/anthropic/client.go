package anthropic

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
	providerName   = "anthropic"
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"

	jsonInstruction = "Respond with a single JSON object and nothing else."
)

// Client implements llm.Provider using the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs an Anthropic client.
func NewClient(apiKey, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (c *Client) Name() string { return providerName }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends one Messages API request.
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.Completion, error) {
	system := strings.TrimSpace(req.System)
	if req.Mode == llm.ModeStructured {
		system = strings.TrimSpace(system + "\n\n" + jsonInstruction)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}
	temp := req.Temperature
	if temp > 1 {
		temp = 1
	}
	body := messagesRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Completion{}, &llm.ProviderError{Provider: providerName, Kind: llm.KindBadRequest, Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return llm.Completion{}, &llm.ProviderError{Provider: providerName, Kind: llm.KindBadRequest, Err: err}
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
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

	var parsed messagesResponse
	parseErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(raw))
		if parseErr == nil && parsed.Error != nil {
			msg = parsed.Error.Type + ": " + parsed.Error.Message
		}
		return llm.Completion{}, llm.ClassifyStatus(providerName, resp.StatusCode, msg, resp.Header)
	}
	if parseErr != nil {
		return llm.Completion{}, &llm.ProviderError{Provider: providerName, Kind: llm.KindServer, StatusCode: resp.StatusCode, Message: "response parse", Err: parseErr}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	out := llm.Completion{
		Text:             text.String(),
		Provider:         providerName,
		Model:            parsed.Model,
		FinishReason:     parsed.StopReason,
		PromptTokens:     parsed.Usage.InputTokens,
		CompletionTokens: parsed.Usage.OutputTokens,
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	return out, nil
}

var _ llm.Provider = (*Client)(nil)
