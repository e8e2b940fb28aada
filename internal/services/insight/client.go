package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 120 * time.Second
)

// Config captures the runtime settings required to talk to the insight model.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Referer string
	Title   string
	Timeout time.Duration
}

// Client wraps the OpenRouter chat completion API used for session enrichment.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an insight client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
			Model:   strings.TrimSpace(cfg.Model),
			Referer: strings.TrimSpace(cfg.Referer),
			Title:   strings.TrimSpace(cfg.Title),
			Timeout: timeout,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://openrouter.ai/api/v1/chat/completions"
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client
}

// AudioReview captures the JSON payload returned for an audio review request.
type AudioReview struct {
	Highlights []string `json:"highlights"`
	Sentiment  string   `json:"sentiment"`
	Notes      string   `json:"notes"`
	Raw        string   `json:"-"`
}

// Chapter marks one segment of a session recording.
type Chapter struct {
	Title        string  `json:"title"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Description  string  `json:"description"`
}

// VideoChapters captures the JSON payload returned for a chaptering request.
type VideoChapters struct {
	Chapters []Chapter `json:"chapters"`
	Raw      string    `json:"-"`
}

// Summary captures the JSON payload returned for a summarization request.
type Summary struct {
	Title     string   `json:"title"`
	Overview  string   `json:"overview"`
	KeyPoints []string `json:"key_points"`
	Raw       string   `json:"-"`
}

// CanvasSection is one block of the composed canvas document.
type CanvasSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Canvas captures the JSON payload returned for a canvas composition request.
type Canvas struct {
	Title    string          `json:"title"`
	Sections []CanvasSection `json:"sections"`
	Raw      string          `json:"-"`
}

// ReviewAudio asks the model to review a session transcript.
func (c *Client) ReviewAudio(ctx context.Context, transcript string) (AudioReview, error) {
	var review AudioReview
	content, err := c.complete(ctx, "audio review", audioReviewPrompt, transcript)
	if err != nil {
		return review, err
	}
	review.Raw = content
	if err := json.Unmarshal([]byte(content), &review); err != nil {
		return AudioReview{}, fmt.Errorf("insight audio review: parse payload: %w", err)
	}
	review.Sentiment = strings.ToLower(strings.TrimSpace(review.Sentiment))
	review.Notes = strings.TrimSpace(review.Notes)
	return review, nil
}

// ChapterVideo asks the model to segment a session timeline into chapters.
func (c *Client) ChapterVideo(ctx context.Context, timeline string) (VideoChapters, error) {
	var chapters VideoChapters
	content, err := c.complete(ctx, "video chapters", videoChaptersPrompt, timeline)
	if err != nil {
		return chapters, err
	}
	chapters.Raw = content
	if err := json.Unmarshal([]byte(content), &chapters); err != nil {
		return VideoChapters{}, fmt.Errorf("insight video chapters: parse payload: %w", err)
	}
	return chapters, nil
}

// Summarize asks the model for a narrative summary of the session.
func (c *Client) Summarize(ctx context.Context, material string) (Summary, error) {
	var summary Summary
	content, err := c.complete(ctx, "summary", summaryPrompt, material)
	if err != nil {
		return summary, err
	}
	summary.Raw = content
	if err := json.Unmarshal([]byte(content), &summary); err != nil {
		return Summary{}, fmt.Errorf("insight summary: parse payload: %w", err)
	}
	summary.Title = strings.TrimSpace(summary.Title)
	summary.Overview = strings.TrimSpace(summary.Overview)
	return summary, nil
}

// ComposeCanvas asks the model to lay out the enrichment results as a canvas.
func (c *Client) ComposeCanvas(ctx context.Context, material string) (Canvas, error) {
	var canvas Canvas
	content, err := c.complete(ctx, "canvas", canvasPrompt, material)
	if err != nil {
		return canvas, err
	}
	canvas.Raw = content
	if err := json.Unmarshal([]byte(content), &canvas); err != nil {
		return Canvas{}, fmt.Errorf("insight canvas: parse payload: %w", err)
	}
	canvas.Title = strings.TrimSpace(canvas.Title)
	return canvas, nil
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("insight health: api key required")
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You must respond with JSON only."},
			{Role: "user", Content: "Respond with {\"ok\":true}"},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	completion, err := c.sendChatRequest(ctx, payload)
	if err != nil {
		return err
	}
	if len(completion.Choices) == 0 {
		return errors.New("insight health: empty response")
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return errors.New("insight health: empty content")
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return fmt.Errorf("insight health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("insight health: unexpected response")
	}
	return nil
}

func (c *Client) complete(ctx context.Context, operation, prompt, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("insight %s: input required", operation)
	}
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("insight %s: api key required", operation)
	}
	if c.cfg.Model == "" {
		return "", fmt.Errorf("insight %s: model required", operation)
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: input},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	completion, err := c.sendChatRequest(ctx, payload)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("insight %s: empty choices", operation)
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("insight %s: empty content", operation)
	}
	return content, nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) sendChatRequest(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, error) {
	var completion chatCompletionResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, fmt.Errorf("insight request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, fmt.Errorf("insight request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, fmt.Errorf("insight request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, fmt.Errorf("insight request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return completion, fmt.Errorf("insight request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, fmt.Errorf("insight request: decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, fmt.Errorf("insight request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, nil
}
