// Package themes classifies videos into watch-time tracking keys: either a
// free-form theme from an LLM or a YouTube category ID from the fixed
// taxonomy. A deployment uses exactly one scheme, chosen by configuration.
package themes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const (
	systemPrompt = "You are a video theme classifier that responds with a single theme word."

	promptTemplate = "Analyze the following YouTube video and classify it into a single specific theme category.\n\n" +
		"Title: %s\n" +
		"Description: %s\n\n" +
		"Respond with just one word representing the theme category. " +
		"Choose from themes like: sports, baseball, football, basketball, gaming, news, politics, " +
		"music, cooking, tech, science, movies, education, finance, travel, etc. " +
		"Be specific where possible (e.g., use 'baseball' instead of just 'sports' if it's clearly about baseball)."
)

// Config holds classifier settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	Retries   int
	CacheSize int
}

// Classifier assigns a one-word theme to a video using a chat-completion
// model, caching results in memory and in the theme cache store so a title
// is classified at most once.
type Classifier struct {
	apiKey  string
	baseURL string
	model   string
	retries int
	httpc   *http.Client
	cache   *lru.Cache[string, string]
	store   storage.ThemeCacheStore
	logger  zerolog.Logger
}

// NewClassifier creates a theme classifier.
func NewClassifier(cfg Config, store storage.ThemeCacheStore, logger zerolog.Logger) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classifier API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4-turbo"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 512
	}

	cache, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create theme cache: %w", err)
	}

	return &Classifier{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		retries: cfg.Retries,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		store:   store,
		logger:  logger.With().Str("component", "theme-classifier").Logger(),
	}, nil
}

// cacheKey builds the lookup key for a video. Descriptions are truncated so
// minor edits to a long description do not defeat the cache.
func cacheKey(title, description string) string {
	if len(description) > 100 {
		description = description[:100]
	}
	return title + ":" + description
}

// Classify returns the one-word theme for a video. Cached results (memory
// first, then the persistent cache) are returned without an API call. API
// failures are retried with exponential backoff; after the final failure an
// error is returned and the caller should skip theme accounting for the
// session rather than guess.
func (c *Classifier) Classify(ctx context.Context, title, description string) (string, error) {
	key := cacheKey(title, description)

	if theme, ok := c.cache.Get(key); ok {
		return theme, nil
	}
	if theme, err := c.store.Get(ctx, key); err == nil {
		c.cache.Add(key, theme)
		return theme, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		c.logger.Warn().Err(err).Msg("Theme cache read failed, calling API")
	}

	theme, err := c.classifyWithRetry(ctx, title, description)
	if err != nil {
		return "", err
	}

	c.cache.Add(key, theme)
	if err := c.store.Put(ctx, key, theme); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist theme cache entry")
	}

	return theme, nil
}

func (c *Classifier) classifyWithRetry(ctx context.Context, title, description string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			c.logger.Debug().Dur("wait", wait).Int("attempt", attempt+1).Msg("Retrying theme classification")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		theme, err := c.classifyOnce(ctx, title, description)
		if err == nil {
			return theme, nil
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Int("retries", c.retries).Msg("Theme classification failed")
	}
	return "", fmt.Errorf("classify theme: %w", lastErr)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Classifier) classifyOnce(ctx context.Context, title, description string) (string, error) {
	if len(description) > 500 {
		description = description[:500]
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(promptTemplate, title, description)},
		},
		Temperature: 0.3,
		MaxTokens:   20,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call classification API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("classification API: %s (status %d)", parsed.Error.Message, resp.StatusCode)
		}
		return "", fmt.Errorf("classification API status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("classification API returned no choices")
	}

	return normalizeTheme(parsed.Choices[0].Message.Content), nil
}

// normalizeTheme lowercases the model's answer and strips punctuation so
// "Baseball." and "baseball" land in the same bucket.
func normalizeTheme(raw string) string {
	theme := strings.ToLower(strings.TrimSpace(raw))
	theme = strings.NewReplacer(".", "", ",", "", "!", "", "?", "", "\"", "", "'", "").Replace(theme)
	return strings.TrimSpace(theme)
}
