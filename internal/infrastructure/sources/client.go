package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/infrastructure/logger"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// jsonClient issues JSON requests with bounded retries.
// Network errors, 429 and 5xx are retried with exponential backoff; anything else fails fast.
type jsonClient struct {
	source      string
	hc          httpDoer
	headers     map[string]string
	maxRetries  int
	backoffBase time.Duration
	logger      *logger.Logger
}

func newJSONClient(source string, hc httpDoer, maxRetries int, backoff time.Duration, log *logger.Logger) *jsonClient {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &jsonClient{
		source:      source,
		hc:          hc,
		headers:     map[string]string{},
		maxRetries:  maxRetries,
		backoffBase: backoff,
		logger:      log,
	}
}

func (c *jsonClient) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *jsonClient) post(ctx context.Context, endpoint string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", c.source, err)
	}
	return c.do(ctx, http.MethodPost, endpoint, payload, out)
}

func (c *jsonClient) do(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	var lastErr error
	attempts := c.maxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		retriable, err := c.once(ctx, method, endpoint, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retriable {
			break
		}

		if attempt < attempts-1 {
			d := c.backoffBase * (1 << attempt)
			c.logger.Debug("Retrying request",
				zap.String("source", c.source),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", d),
				zap.Error(err))
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return &entity.TransportError{Source: c.source, Message: ctx.Err().Error(), Err: ctx.Err()}
			case <-t.C:
			}
		}
	}
	return lastErr
}

func (c *jsonClient) once(ctx context.Context, method, endpoint string, payload []byte, out any) (bool, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return false, &entity.TransportError{Source: c.source, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return ctx.Err() == nil, &entity.TransportError{Source: c.source, Message: err.Error(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		sc := resp.StatusCode
		return sc == http.StatusTooManyRequests || sc >= 500, &entity.TransportError{
			Source:     c.source,
			StatusCode: sc,
			Message:    fmt.Sprintf("request failed with status %d: %s", sc, string(b)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, &entity.TransportError{Source: c.source, Message: "failed to decode response: " + err.Error(), Err: err}
	}
	return false, nil
}
