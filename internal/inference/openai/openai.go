package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/trousev/mealcontrol/internal/inference"
)

const defaultBaseURL = "https://api.openai.com/v1"

// initialPrompt is sent as the text part of the first request, before any
// conversation exists.
const initialPrompt = "Please analyze this meal image and identify all food components with their nutritional information."

// request types mirror the OpenAI Responses API structure.
type request struct {
	Model              string         `json:"model,omitempty"`
	Input              []inputMessage `json:"input,omitempty"`
	Prompt             *promptRef     `json:"prompt,omitempty"`
	PreviousResponseID string         `json:"previous_response_id,omitempty"`
}

type inputMessage struct {
	Role    string        `json:"role"`
	Content []contentItem `json:"content"`
}

type contentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type promptRef struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

type Config struct {
	BaseURL       string
	Model         string
	PromptID      string
	PromptVersion string
	Timeout       time.Duration
}

// Client speaks the Responses API over plain HTTP. Responses are returned
// raw; normalization happens in the inference package.
type Client struct {
	creds  inference.Credentials
	cfg    Config
	client *http.Client
}

func NewClient(creds inference.Credentials, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		creds:  creds,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) SendInitial(ctx context.Context, image []byte, history []inference.HistoryItem) (*inference.RawResponse, error) {
	content := []contentItem{
		{
			Type:     "input_image",
			ImageURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
		},
		{Type: "input_text", Text: historyText(history, "")},
	}
	return c.send(ctx, request{
		Model:  c.cfg.Model,
		Input:  []inputMessage{{Role: "user", Content: content}},
		Prompt: c.promptRef(),
	})
}

func (c *Client) SendFollowUp(ctx context.Context, previousResponseID, userText string, history []inference.HistoryItem) (*inference.RawResponse, error) {
	// With a response reference the service continues its own reasoning
	// chain and only the new text is needed. Without one (the prior turn
	// failed or returned no id) the transcript is replayed instead.
	text := userText
	if previousResponseID == "" {
		text = historyText(history, userText)
	}
	return c.send(ctx, request{
		Model:              c.cfg.Model,
		Input:              []inputMessage{{Role: "user", Content: []contentItem{{Type: "input_text", Text: text}}}},
		Prompt:             c.promptRef(),
		PreviousResponseID: previousResponseID,
	})
}

func (c *Client) promptRef() *promptRef {
	if c.cfg.PromptID == "" {
		return nil
	}
	return &promptRef{ID: c.cfg.PromptID, Version: c.cfg.PromptVersion}
}

// historyText renders the conversation so far as "User:"/"AI:" lines, the
// encoding the detection prompt was written against.
func historyText(history []inference.HistoryItem, userText string) string {
	var lines []string
	for _, item := range history {
		if item.FromUser {
			lines = append(lines, "User: "+item.Content)
		} else {
			lines = append(lines, "AI: "+item.Content)
		}
	}
	if userText != "" {
		lines = append(lines, "User: "+userText)
	}
	if len(lines) == 0 {
		return initialPrompt
	}
	return strings.Join(lines, "\n")
}

func (c *Client) send(ctx context.Context, body request) (*inference.RawResponse, error) {
	key, err := c.creds.APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load api key: %w", err)
	}
	if key == "" {
		return nil, inference.ErrNoAPIKey
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &inference.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &inference.TransportError{Message: "failed to read response body: " + err.Error()}
	}

	if resp.StatusCode >= 400 {
		return nil, &inference.TransportError{Status: resp.StatusCode, Message: string(raw)}
	}

	return &inference.RawResponse{
		ID:   gjson.GetBytes(raw, "id").String(),
		Body: raw,
	}, nil
}
