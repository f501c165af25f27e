package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chart_analyst/internal/helper"
	"chart_analyst/internal/metrics"
	"chart_analyst/internal/models"
	"chart_analyst/pkg/logger"

	"github.com/bytedance/sonic"
)

const sourceOKX = "okx"

// Fetcher отдаёт проверенный ряд свечей по инструменту.
type Fetcher interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) (models.Series, error)
}

type OKXConfig struct {
	BaseURL    string
	Timeout    time.Duration // на одну попытку
	RetryDelay time.Duration
}

type OKXClient struct {
	cfg     OKXConfig
	http    *http.Client
	metrics *metrics.Metrics
}

func NewOKXClient(cfg OKXConfig, m *metrics.Metrics) *OKXClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.okx.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &OKXClient{
		cfg:     cfg,
		http:    &http.Client{},
		metrics: m,
	}
}

type candlesResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// retryable: сетевой сбой или 5xx, такие повторяем один раз.
type retryable struct{ err error }

func (r retryable) Error() string { return r.err.Error() }
func (r retryable) Unwrap() error { return r.err }

// Candles: row OKX = [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm], newest-first.
func (c *OKXClient) Candles(ctx context.Context, symbol, timeframe string, limit int) (models.Series, error) {
	if limit <= 0 {
		limit = 100
	}
	bar, err := okxBar(timeframe)
	if err != nil {
		return models.Series{}, err
	}

	u := fmt.Sprintf("%s/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.QueryEscape(symbol), url.QueryEscape(bar), limit,
	)

	var resp candlesResponse
	if err := c.fetch(ctx, u, &resp); err != nil {
		return models.Series{}, err
	}
	if resp.Code != "0" {
		c.metrics.UpstreamFailure(sourceOKX)
		return models.Series{}, models.UpstreamError{
			Source: sourceOKX,
			Err:    fmt.Errorf("okx candles error: code=%s msg=%s", resp.Code, resp.Msg),
		}
	}

	bars := parseRows(resp.Data)
	series, err := models.NewSeries(symbol, helper.NormTF(timeframe), bars)
	if err != nil {
		return models.Series{}, models.UpstreamError{Source: sourceOKX, Err: err}
	}
	return series, nil
}

// fetch делает GET с одним повтором на сетевой сбой или 5xx и декодирует ответ в out.
func (c *OKXClient) fetch(ctx context.Context, u string, out interface{}) error {
	var (
		b   []byte
		err error
	)
	for attempt := 0; attempt < 2; attempt++ {
		b, err = c.get(ctx, u)
		if err == nil {
			break
		}
		if _, ok := err.(retryable); !ok || attempt == 1 || ctx.Err() != nil {
			break
		}
		logger.Info("okx %s: retry after %v", u, err)
		select {
		case <-ctx.Done():
		case <-time.After(c.cfg.RetryDelay):
		}
	}
	if err == nil {
		if err = sonic.Unmarshal(b, out); err != nil {
			err = fmt.Errorf("decode okx response: %w", err)
		}
	}
	if err != nil {
		c.metrics.UpstreamFailure(sourceOKX)
		return models.UpstreamError{Source: sourceOKX, Err: err}
	}
	return nil
}

func (c *OKXClient) get(ctx context.Context, u string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, retryable{err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retryable{err}
	}
	if resp.StatusCode >= 500 {
		return nil, retryable{fmt.Errorf("http %d: %s", resp.StatusCode, string(b))}
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
	}
	return b, nil
}

// parseRows разворачивает ответ по времени, битые строки и дубли выкидывает.
func parseRows(rows [][]string) []models.Bar {
	out := make([]models.Bar, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 5 {
			continue
		}

		tsMs, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		ohlc, ok := parseFloats(row[1:5])
		if !ok {
			continue
		}
		open, high, low, closep := ohlc[0], ohlc[1], ohlc[2], ohlc[3]
		if closep <= 0 {
			continue
		}

		var vol float64
		if len(row) >= 6 && row[5] != "" {
			v, ok := parseFloats(row[5:6])
			if !ok || v[0] < 0 {
				continue
			}
			vol = v[0]
		}

		start := time.UnixMilli(tsMs).UTC()
		if n := len(out); n > 0 && !start.After(out[n-1].Time) {
			continue
		}
		out = append(out, models.Bar{
			Time:   start,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closep,
			Volume: vol,
		})
	}
	return out
}

func parseFloats(fields []string) ([]float64, bool) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func okxBar(tf string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(tf)) {
	case "1m", "3m", "5m", "15m", "30m":
		return strings.ToLower(strings.TrimSpace(tf)), nil

	case "60m", "1h":
		return "1H", nil
	case "2h":
		return "2H", nil
	case "4h":
		return "4H", nil
	case "6h":
		return "6H", nil
	case "12h":
		return "12H", nil

	case "1d":
		return "1D", nil
	case "1w":
		return "1W", nil
	case "1mo", "1mth":
		return "1M", nil
	}
	return "", fmt.Errorf("unsupported timeframe for OKX bar: %q", tf)
}
