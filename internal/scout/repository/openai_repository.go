package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/pkg/logger"

	"golang.org/x/time/rate"
)

type openaiAIRepository struct {
	client         *http.Client
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewOpenAIRepository creates an AIRepository backed by an
// OpenAI-compatible chat endpoint.
func NewOpenAIRepository(cfg *config.Config, log *logger.Logger) AIRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.LLM.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &openaiAIRepository{
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

// Generate sends one chat completion request and returns the raw reply
// text. All provider-side failures are wrapped in ErrAIUnavailable so
// callers can tell them apart from malformed-but-successful replies.
func (r *openaiAIRepository) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if r.cfg.LLM.APIKey == "" {
		return "", fmt.Errorf("%w: llm.api_key is not configured", ErrAIUnavailable)
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for request limit: %w", err)
	}

	messages := []dto.ChatMessage{}
	if systemPrompt != "" {
		messages = append(messages, dto.ChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, dto.ChatMessage{Role: "user", Content: userPrompt})

	payload := dto.ChatRequest{
		Model:     r.cfg.LLM.Model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.cfg.LLM.BaseURL+"/chat/completions", bytes.NewBuffer(jsonPayload))
	if err != nil {
		return "", fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.cfg.LLM.APIKey))

	r.logger.Debug("Sending request to LLM API", logger.StringField("model", r.cfg.LLM.Model))

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("Failed to send request to LLM API", logger.ErrorField(err))
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.logger.Error("Received non-OK response from LLM API",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("model", r.cfg.LLM.Model),
		)
		return "", fmt.Errorf("%w: %s", ErrAIUnavailable, classifyStatus(resp.StatusCode, body))
	}

	var chatResp dto.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response body: %v", ErrAIUnavailable, err)
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: no content in response", ErrAIUnavailable)
	}

	return chatResp.Choices[0].Message.Content, nil
}

func classifyStatus(code int, body []byte) string {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("authentication failed (%d)", code)
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return fmt.Sprintf("quota or rate limit exhausted (%d)", code)
	default:
		return fmt.Sprintf("provider error %d - %s", code, string(body))
	}
}
