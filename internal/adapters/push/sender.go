// Package push delivers notifications to device tokens.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	_ domain.PushSender = (*LogSender)(nil)
	_ domain.PushSender = (*HTTPSender)(nil)
)

// LogSender logs notifications instead of sending them. Every token succeeds.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, tokens []string, msg domain.PushMessage) (domain.PushResult, error) {
	s.logger.Info("push notification",
		zap.Int("tokens", len(tokens)),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.Any("data", msg.Data),
	)
	return domain.PushResult{Success: len(tokens)}, nil
}

// HTTPSender posts multicast messages to a push gateway.
//
// The gateway answers with {"results":[{"token":"...","status":"ok|invalid|error"}]}.
type HTTPSender struct {
	url     string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPSender(url, apiKey string, rps float64) *HTTPSender {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &HTTPSender{
		url:     url,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
	}
}

type multicastRequest struct {
	Tokens       []string          `json:"tokens"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *HTTPSender) Send(ctx context.Context, tokens []string, msg domain.PushMessage) (domain.PushResult, error) {
	var res domain.PushResult
	if len(tokens) == 0 {
		return res, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return res, fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}

	payload, err := json.Marshal(multicastRequest{
		Tokens:       tokens,
		Notification: notification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	})
	if err != nil {
		return res, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return res, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return res, fmt.Errorf("%w: push gateway: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return res, fmt.Errorf("%w: push gateway: %v", domain.ErrExternalService, err)
	}
	if resp.StatusCode >= 300 {
		return res, fmt.Errorf("%w: push gateway returned %d", domain.ErrExternalService, resp.StatusCode)
	}

	return parseResults(body, tokens), nil
}

// parseResults counts per-token outcomes. Tokens missing from the response count as failures.
func parseResults(body []byte, tokens []string) domain.PushResult {
	var res domain.PushResult
	seen := make(map[string]bool, len(tokens))

	gjson.GetBytes(body, "results").ForEach(func(_, r gjson.Result) bool {
		token := r.Get("token").String()
		seen[token] = true
		switch r.Get("status").String() {
		case "ok":
			res.Success++
		case "invalid":
			res.Failure++
			res.InvalidTokens = append(res.InvalidTokens, token)
		default:
			res.Failure++
		}
		return true
	})

	for _, t := range tokens {
		if !seen[t] {
			res.Failure++
		}
	}
	return res
}
