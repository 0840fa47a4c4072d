package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"creativelens/pkg/logger"

	"golang.org/x/time/rate"
)

// RemoteBackend talks to a storage server exposing /select, /update,
// /clearTable and /factoryReset over JSON POSTs.
type RemoteBackend struct {
	client      *http.Client
	baseURL     string
	logger      *logger.Logger
	rateLimiter *rate.Limiter
}

type tableRequest struct {
	Table string          `json:"table"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewRemoteBackend(baseURL string, timeout time.Duration, ratePerSecond int, logger *logger.Logger) *RemoteBackend {
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	return &RemoteBackend{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
	}
}

func (b *RemoteBackend) Name() string { return "remote" }

// Ping reads the config table, which any healthy server can serve.
func (b *RemoteBackend) Ping(ctx context.Context) error {
	_, err := b.post(ctx, "/select", tableRequest{Table: "config"})
	return err
}

func (b *RemoteBackend) Load(ctx context.Context, table string) ([]byte, bool, error) {
	body, err := b.post(ctx, "/select", tableRequest{Table: table})
	if err != nil {
		return nil, false, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, false, nil
	}
	return trimmed, true, nil
}

func (b *RemoteBackend) Save(ctx context.Context, table string, data []byte) error {
	_, err := b.post(ctx, "/update", tableRequest{Table: table, Data: data})
	return err
}

func (b *RemoteBackend) Delete(ctx context.Context, table string) error {
	_, err := b.post(ctx, "/clearTable", tableRequest{Table: table})
	return err
}

func (b *RemoteBackend) Reset(ctx context.Context) error {
	_, err := b.post(ctx, "/factoryReset", struct{}{})
	return err
}

func (b *RemoteBackend) post(ctx context.Context, path string, payload any) ([]byte, error) {
	start := time.Now()

	if err := b.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage server unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	b.logger.WithContext(ctx).WithFields(map[string]any{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("Storage server call")

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("storage server %s returned status %d: %s", path, resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("storage server %s returned status %d", path, resp.StatusCode)
	}

	return respBody, nil
}
