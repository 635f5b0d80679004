package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultTelegramURL = "https://api.telegram.org"
	defaultRetries     = 2
	testPrefix         = "🧪 [TEST] "
)

// TelegramConfig configura el notificador de Telegram.
type TelegramConfig struct {
	Token   string
	ChatID  string
	BaseURL string // vacío = api.telegram.org
	Retries int
	Test    bool // dry-run: antepone el marcador de test a cada mensaje
	Timeout time.Duration
}

// Telegram implementa ports.Notifier sobre la Bot API (sendMessage, HTML).
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	retries int
	test    bool
	client  *http.Client
	backoff time.Duration
}

// NewTelegram crea el notificador. Token y chat son obligatorios.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("notify.NewTelegram: token and chat id are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTelegramURL
	}
	if cfg.Retries < 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Telegram{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		chatID:  cfg.ChatID,
		retries: cfg.Retries,
		test:    cfg.Test,
		client:  &http.Client{Timeout: cfg.Timeout},
		backoff: time.Second,
	}, nil
}

// Notify envía el mensaje con reintentos y backoff exponencial.
// Best-effort: el error final se devuelve para que quien llama lo loguee.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if t.test {
		text = testPrefix + text
	}

	var lastErr error
	for attempt := 0; attempt <= t.retries; attempt++ {
		if attempt > 0 {
			wait := t.backoff * time.Duration(1<<uint(attempt-1))
			slog.Warn("telegram: send failed, retrying",
				"attempt", attempt,
				"wait", wait,
				"err", lastErr,
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("notify.Telegram: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
		if lastErr = t.send(ctx, text); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("notify.Telegram: %d attempts: %w", t.retries+1, lastErr)
}

func (t *Telegram) send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, respBody)
	}
	return nil
}
