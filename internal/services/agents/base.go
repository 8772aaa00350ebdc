package agents

import (
	"context"
	"fmt"
	"time"

	svcmetrics "TradeQuorum/internal/service/metrics"
	"TradeQuorum/internal/service/ratelimit"
	"TradeQuorum/pkg/config"
	xhttp "TradeQuorum/pkg/http"
)

// HTTPServiceBase centralizes client construction and JSON POST
// handling for the model-service agent clients. Calls are throttled
// through a shared token-bucket limiter so three concurrent agents
// cannot stampede the model service.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	maxRPS  float64
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL from config.
func NewHTTPServiceBase(cfg *config.Config, limiter *ratelimit.Limiter) *HTTPServiceBase {
	timeout := cfg.Agents.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.Agents.MaxRPS
	if rps <= 0 {
		rps = 5
	}
	svcmetrics.Register()
	return &HTTPServiceBase{
		baseURL: cfg.Agents.ModelServiceURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter: limiter,
		maxRPS:  rps,
	}
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("model service client not initialized")
	}
	if err := b.wait(ctx, path); err != nil {
		return err
	}
	start := time.Now()
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	svcmetrics.AgentCallLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.AgentCallErrors.WithLabelValues(path).Inc()
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry posts JSON with up to `attempts` retries for transient errors.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.PostJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// wait blocks until a token is available for path or ctx expires.
func (b *HTTPServiceBase) wait(ctx context.Context, path string) error {
	if b.limiter == nil {
		return nil
	}
	for !b.limiter.Allow("model"+path, b.maxRPS, b.maxRPS) {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
