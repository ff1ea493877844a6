package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/internal/scout/dto"
	"edtech-market-scout/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAIRepo(t *testing.T, baseURL, apiKey string) AIRepository {
	t.Helper()
	log, err := logger.New("error", "json")
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.LLM.APIKey = apiKey
	cfg.LLM.BaseURL = baseURL
	cfg.LLM.Model = "test-model"
	cfg.LLM.MaxRequestPerMinute = 600
	return NewOpenAIRepository(cfg, log)
}

func chatReply(content string) dto.ChatResponse {
	var resp dto.ChatResponse
	resp.Choices = []dto.ChatChoice{{Message: dto.ChatMessage{Role: "assistant", Content: content}}}
	return resp
}

func TestGenerateReturnsReplyContent(t *testing.T) {
	var captured dto.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		require.NoError(t, json.NewEncoder(w).Encode(chatReply("hello from the model")))
	}))
	defer server.Close()

	repo := newAIRepo(t, server.URL, "secret")
	content, err := repo.Generate(context.Background(), "you are a researcher", "list companies", 500)

	require.NoError(t, err)
	assert.Equal(t, "hello from the model", content)
	assert.Equal(t, "test-model", captured.Model)
	assert.Equal(t, 500, captured.MaxTokens)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
}

func TestGenerateOmitsEmptySystemPrompt(t *testing.T) {
	var captured dto.ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		require.NoError(t, json.NewEncoder(w).Encode(chatReply("ok")))
	}))
	defer server.Close()

	repo := newAIRepo(t, server.URL, "secret")
	_, err := repo.Generate(context.Background(), "", "list companies", 500)

	require.NoError(t, err)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
}

func TestGenerateMissingKeyIsUnavailable(t *testing.T) {
	repo := newAIRepo(t, "http://127.0.0.1:1", "")

	_, err := repo.Generate(context.Background(), "", "list companies", 500)

	assert.ErrorIs(t, err, ErrAIUnavailable)
}

func TestGenerateProviderStatusesAreUnavailable(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		repo := newAIRepo(t, server.URL, "secret")
		_, err := repo.Generate(context.Background(), "", "list companies", 500)

		assert.ErrorIs(t, err, ErrAIUnavailable, "status %d", status)
		server.Close()
	}
}

func TestGenerateEmptyChoicesIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(dto.ChatResponse{}))
	}))
	defer server.Close()

	repo := newAIRepo(t, server.URL, "secret")
	_, err := repo.Generate(context.Background(), "", "list companies", 500)

	assert.ErrorIs(t, err, ErrAIUnavailable)
}

func TestGenerateConnectionFailureIsUnavailable(t *testing.T) {
	repo := newAIRepo(t, "http://127.0.0.1:1", "secret")

	_, err := repo.Generate(context.Background(), "", "list companies", 500)

	assert.ErrorIs(t, err, ErrAIUnavailable)
}
