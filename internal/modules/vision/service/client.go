package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chart_analyst/internal/metrics"
	"chart_analyst/internal/models"
	"chart_analyst/pkg/logger"

	"google.golang.org/genai"
)

const sourceVision = "vision"

var (
	ErrNotConfigured   = errors.New("gemini api key is not configured")
	errEmptyCompletion = errors.New("empty completion")
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RetryDelay time.Duration
}

// Client: Gemini generateContent с картинкой inline.
type Client struct {
	cfg     Config
	genai   *genai.Client
	metrics *metrics.Metrics
}

// NewClient без ключа возвращает клиент, который на каждый запрос отвечает ErrNotConfigured.
func NewClient(ctx context.Context, cfg Config, m *metrics.Metrics) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	c := &Client{cfg: cfg, metrics: m}
	if cfg.APIKey == "" {
		return c, nil
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.genai = gc
	return c, nil
}

// AnalyzeImage отправляет скриншот и разбирает ответ по тегам.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, mime string) (Narrative, error) {
	if c.genai == nil {
		return Narrative{}, models.UpstreamError{Source: sourceVision, Err: ErrNotConfigured}
	}
	if len(image) == 0 {
		return Narrative{}, errors.New("empty image")
	}
	if mime == "" {
		mime = http.DetectContentType(image)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(analystPrompt),
			genai.NewPartFromBytes(image, mime),
		}, genai.RoleUser),
	}

	var (
		text string
		err  error
	)
	for attempt := 0; attempt < 2; attempt++ {
		text, err = c.generate(ctx, contents)
		if err == nil {
			break
		}
		if !retryable(err) || attempt == 1 || ctx.Err() != nil {
			break
		}
		logger.Info("gemini: retry after %v", err)
		select {
		case <-ctx.Done():
		case <-time.After(c.cfg.RetryDelay):
		}
	}
	if err != nil {
		c.metrics.UpstreamFailure(sourceVision)
		return Narrative{}, models.UpstreamError{Source: sourceVision, Err: err}
	}

	if IsErrorReply(text) {
		c.metrics.UpstreamFailure(sourceVision)
		return Narrative{}, models.UpstreamError{Source: sourceVision, Err: errors.New(strings.TrimSpace(text))}
	}
	return ParseNarrative(text)
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.genai.Models.GenerateContent(ctx, c.cfg.Model, contents, nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

// retryable: сетевые ошибки, 429 и 5xx. Остальные ответы API повторять бессмысленно.
func retryable(err error) bool {
	var api genai.APIError
	if errors.As(err, &api) {
		return api.Code >= 500 || api.Code == http.StatusTooManyRequests
	}
	return !errors.Is(err, errEmptyCompletion)
}
