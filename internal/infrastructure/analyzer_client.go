package infrastructure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"creativelens/internal/domain"
	"creativelens/pkg/logger"

	"golang.org/x/time/rate"
)

// HTTPAnalyzer sends creatives to an external analysis service.
type HTTPAnalyzer struct {
	client      *http.Client
	url         string
	apiKey      string
	logger      *logger.Logger
	rateLimiter *rate.Limiter
}

type analyzeRequest struct {
	Filename    string `json:"filename"`
	MimeType    string `json:"mimeType"`
	FileType    string `json:"fileType"`
	Data        string `json:"data"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	ClientID    string `json:"clientId"`
	Language    string `json:"language"`
	FormatGroup string `json:"formatGroup"`
	Context     string `json:"context"`
}

func NewHTTPAnalyzer(url, apiKey string, timeout time.Duration, ratePerSecond int, logger *logger.Logger) *HTTPAnalyzer {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	return &HTTPAnalyzer{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		url:         url,
		apiKey:      apiKey,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	if a.url == "" {
		return nil, fmt.Errorf("analyzer URL not configured")
	}
	start := time.Now()

	if err := a.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	payload, err := json.Marshal(analyzeRequest{
		Filename:    req.Creative.Filename,
		MimeType:    req.Creative.ContentType,
		FileType:    string(req.Creative.Type),
		Data:        base64.StdEncoding.EncodeToString(req.Creative.Data),
		Width:       req.Creative.Width,
		Height:      req.Creative.Height,
		ClientID:    req.ClientID,
		Language:    string(req.Language),
		FormatGroup: string(req.Format),
		Context:     req.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analyzer unreachable: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"file_name": req.Creative.Filename,
		"format":    string(req.Format),
		"duration":  duration,
	}).Info("Received creative analysis")

	return &result, nil
}
