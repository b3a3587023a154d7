package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lisensia/lisensia_api/internal/config"
	"github.com/lisensia/lisensia_api/internal/utils"
)

// Sender delivers one serialized notification payload.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// Client posts order notifications to the WhatsApp gateway. Payloads are
// signed with HMAC-SHA256 so the gateway can verify the origin.
type Client struct {
	httpClient *http.Client
	gatewayURL string
	secret     string
}

// NewClient creates a gateway client from config.
func NewClient(cfg config.NotifyConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		gatewayURL: cfg.GatewayURL,
		secret:     cfg.Secret,
	}
}

// Send posts the payload to the gateway. Any non-2xx response is an error.
func (c *Client) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", utils.GenerateSignature(payload, c.secret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// LogSender is the fallback when no gateway is configured; it logs the
// payload instead of delivering it.
type LogSender struct{}

// Send logs the payload and reports success.
func (LogSender) Send(_ context.Context, payload []byte) error {
	log.Info().RawJSON("payload", payload).Msg("Notification gateway not configured, logging only")
	return nil
}
