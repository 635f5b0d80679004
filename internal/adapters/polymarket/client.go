package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Rate limits al 60% de los documentados.
	// Gamma /markets: 300/10s → 18/s
	gammaRatePerSec = 18
	// CLOB general: 9000/10s → 540/s
	clobRatePerSec = 540

	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	baseRetryWait  = 500 * time.Millisecond
)

// Client es el HTTP client de Polymarket (Gamma + CLOB) con rate limiting y
// retries en las lecturas.
type Client struct {
	http         *http.Client
	clobBase     string
	gammaBase    string
	clobLimiter  *rate.Limiter
	gammaLimiter *rate.Limiter
	retryWait    time.Duration
}

// NewClient crea un Client. Base URLs vacías = producción; timeout <= 0 = 10s.
func NewClient(clobBase, gammaBase string, timeout time.Duration) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:         &http.Client{Timeout: timeout},
		clobBase:     clobBase,
		gammaBase:    gammaBase,
		clobLimiter:  rate.NewLimiter(clobRatePerSec, 50),
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
		retryWait:    baseRetryWait,
	}
}

// retryable marca los fallos que merece la pena repetir.
type retryable struct{ err error }

func (r retryable) Error() string { return r.err.Error() }
func (r retryable) Unwrap() error { return r.err }

// get hace un GET idempotente con rate limiting y backoff exponencial.
// Errores: red, 429 y 5xx → ErrUnavailable; 404 → ErrMarketNotFound;
// JSON inválido → ErrMalformedPayload.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any, header http.Header) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 && !c.backoff(ctx, attempt-1) {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w: %w", domain.ErrUnavailable, err)
		}

		err := c.getOnce(ctx, url, out, header)
		var r retryable
		if err == nil || !errors.As(err, &r) {
			return err
		}
		lastErr = r.err
		slog.Debug("polymarket: retrying GET", "url", url, "attempt", attempt+1, "err", lastErr)
	}
	return fmt.Errorf("exhausted %d retries: %w", maxRetries, lastErr)
}

func (c *Client) getOnce(ctx context.Context, url string, out any, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return retryable{fmt.Errorf("request failed: %w: %w", domain.ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("polymarket: rate limited by API", "url", url)
		return retryable{fmt.Errorf("rate limited: %w", domain.ErrUnavailable)}
	case resp.StatusCode >= 500:
		return retryable{fmt.Errorf("server error %d: %w", resp.StatusCode, domain.ErrUnavailable)}
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("not found: %w", domain.ErrMarketNotFound)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("client error %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %w", domain.ErrMalformedPayload, err)
	}
	return nil
}

// backoff espera retryWait·2^attempt. false si el contexto se cancela antes.
func (c *Client) backoff(ctx context.Context, attempt int) bool {
	t := time.NewTimer(c.retryWait << attempt)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
