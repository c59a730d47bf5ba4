// Package predictor holds predictor adapters that call out of process.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kilianp07/shuttlecast/auth"
	"github.com/kilianp07/shuttlecast/core/prediction"
	"github.com/kilianp07/shuttlecast/infra/logger"
)

// HTTPConfig configures the remote model server client.
type HTTPConfig struct {
	URL        string        `json:"url"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries uint64        `json:"max_retries"`
	// MaxElapsed bounds the total time spent retrying one prediction.
	MaxElapsed time.Duration `json:"max_elapsed"`
	Auth       auth.Conf     `json:"auth"`
}

// SetDefaults applies the client defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = 30 * time.Second
	}
}

type predictRequest struct {
	Features map[string]float64 `json:"features"`
	Names    []string           `json:"names"`
	Values   []float64          `json:"values"`
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
}

// StatusError is returned for non-2xx answers of the model server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model server returned %d: %s", e.Code, e.Body)
}

// HTTPPredictor posts features to a model server and reads back one number.
// 5xx, 429 and transport errors are retried with exponential backoff; other
// 4xx answers fail immediately.
type HTTPPredictor struct {
	url        string
	client     *http.Client
	creds      *auth.ClientCred
	maxRetries uint64
	maxElapsed time.Duration
	log        logger.Logger
}

// NewHTTPPredictor validates cfg and returns a predictor.
func NewHTTPPredictor(cfg HTTPConfig) (*HTTPPredictor, error) {
	if cfg.URL == "" {
		return nil, errors.New("http predictor: url is required")
	}
	cfg.SetDefaults()
	p := &HTTPPredictor{
		url:        cfg.URL,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		maxElapsed: cfg.MaxElapsed,
		log:        logger.New("http_predictor"),
	}
	if cfg.Auth.Enabled() {
		p.creds = auth.NewClientCred(cfg.Auth)
	}
	return p, nil
}

// Predict implements prediction.Predictor.
func (p *HTTPPredictor) Predict(ctx context.Context, f prediction.Features) (float64, error) {
	body, err := json.Marshal(predictRequest{Features: f.Map(), Names: f.Names, Values: f.Values})
	if err != nil {
		return 0, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = p.maxElapsed
	policy := backoff.WithContext(backoff.WithMaxRetries(b, p.maxRetries), ctx)

	var out float64
	attempt := 0
	op := func() error {
		attempt++
		v, err := p.do(ctx, body)
		if err != nil {
			return err
		}
		out = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		p.log.Warnf("predict attempt %d failed, retrying in %s: %v", attempt, wait, err)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return 0, cerr
		}
		return 0, err
	}
	return out, nil
}

func (p *HTTPPredictor) do(ctx context.Context, body []byte) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.creds != nil {
		if err := p.creds.SetAuthHeader(req); err != nil {
			return 0, err
		}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized && p.creds != nil:
		// token revoked server side; refresh and retry
		if _, rerr := p.creds.ForceRefresh(ctx); rerr != nil {
			return 0, backoff.Permanent(rerr)
		}
		return 0, &StatusError{Code: resp.StatusCode, Body: string(data)}
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return 0, &StatusError{Code: resp.StatusCode, Body: string(data)}
	case resp.StatusCode >= 300:
		return 0, backoff.Permanent(&StatusError{Code: resp.StatusCode, Body: string(data)})
	}

	var pr predictResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return 0, backoff.Permanent(fmt.Errorf("decode prediction: %w", err))
	}
	if pr.Prediction == nil {
		return 0, backoff.Permanent(errors.New("response has no prediction"))
	}
	return *pr.Prediction, nil
}
