package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"caremind/internal/config"
	"caremind/internal/logger"
)

var (
	ErrMissingAPIKey   = errors.New("gemini API key is not set")
	ErrAllModelsFailed = errors.New("all Gemini models failed")
	errEmptyResponse   = errors.New("empty response")
)

// Generator sends one prompt to one model and returns the raw candidate text.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Cache stores responses by key. storage.DB satisfies it.
type Cache interface {
	GetCachedResponse(key string) (*string, error)
	PutCachedResponse(key, response string) error
}

type Client struct {
	models  []string
	gen     Generator
	limiter *RateLimiter
	timeout time.Duration
	cache   Cache
	log     zerolog.Logger
}

type genaiGenerator struct {
	client *genai.Client
}

func (g genaiGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	result, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

// New builds a client backed by the Gemini API. cache may be nil; it is only
// consulted when GEMINI_CACHE is enabled.
func New(ctx context.Context, cfg config.Config, cache Cache) (*Client, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.GeminiBaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	gc, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	if !cfg.GeminiCache {
		cache = nil
	}
	return NewWithGenerator(genaiGenerator{client: gc}, cfg, cache), nil
}

func NewWithGenerator(gen Generator, cfg config.Config, cache Cache) *Client {
	models := cfg.GeminiModels
	if len(models) == 0 {
		models = config.DefaultGeminiModels()
	}
	timeout := time.Duration(cfg.GeminiTimeoutMs) * time.Millisecond
	return &Client{
		models:  append([]string(nil), models...),
		gen:     gen,
		limiter: NewRateLimiter(cfg.GeminiRateLimitRPS),
		timeout: timeout,
		cache:   cache,
		log:     logger.NewLogger("gemini"),
	}
}

func (c *Client) Models() []string {
	return append([]string(nil), c.models...)
}

// Ask tries each configured model in order and returns the first non-empty,
// trimmed answer. Cancellation of ctx stops the chain immediately.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	key := CacheKey(c.models, prompt)
	if c.cache != nil {
		if cached, err := c.cache.GetCachedResponse(key); err != nil {
			c.log.Warn().Err(err).Msg("cache lookup failed")
		} else if cached != nil {
			return *cached, nil
		}
	}

	var lastErr error
	for _, model := range c.models {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return "", err
		}

		text, err := c.generate(ctx, model, prompt)
		if err == nil {
			c.log.Debug().Str("model", model).Msg("model answered")
			if c.cache != nil {
				if err := c.cache.PutCachedResponse(key, text); err != nil {
					c.log.Warn().Err(err).Msg("cache store failed")
				}
			}
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		c.log.Warn().Str("model", model).Err(err).Msg("model failed")
		lastErr = fmt.Errorf("model %s: %w", model, err)
	}

	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	return "", fmt.Errorf("%w. Last error: %w", ErrAllModelsFailed, lastErr)
}

func (c *Client) generate(ctx context.Context, model, prompt string) (string, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	text, err := c.gen.Generate(callCtx, model, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func CacheKey(models []string, prompt string) string {
	sum := sha256.Sum256([]byte(strings.Join(models, ",") + "\n" + prompt))
	return hex.EncodeToString(sum[:])
}
