package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/oursky/agent-manager/pkg/utils/httputil"
	"github.com/oursky/agent-manager/pkg/utils/ratelimit"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPProbe checks that a URL answers with a 2xx status.
//
// Params: url (required), method (default GET), timeout (Go duration,
// default 10s), rps (requests per second, default 1).
type HTTPProbe struct {
	url     string
	method  string
	timeout time.Duration
	rps     float64
	client  *http.Client
}

func (p *HTTPProbe) Configure(params map[string]string) error {
	u, err := url.Parse(params["url"])
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid url %q", params["url"])
	}
	p.url = u.String()

	p.method = http.MethodGet
	if m := params["method"]; m != "" {
		p.method = m
	}

	p.timeout = 10 * time.Second
	if t := params["timeout"]; t != "" {
		if p.timeout, err = time.ParseDuration(t); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}

	p.rps = 1
	if r := params["rps"]; r != "" {
		if p.rps, err = strconv.ParseFloat(r, 64); err != nil || p.rps <= 0 {
			return fmt.Errorf("invalid rps %q", r)
		}
	}
	return nil
}

func (p *HTTPProbe) Init() error {
	p.client = &http.Client{
		Transport: ratelimit.NewTransport(http.DefaultTransport, rate.Limit(p.rps), 1),
		Timeout:   p.timeout,
	}
	return nil
}

func (p *HTTPProbe) Run(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, p.method, p.url, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer httputil.Drain(resp)

	if err := httputil.CheckStatus(resp); err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}

	agent.Logger(ctx).Debug("probe succeeded",
		zap.String("url", p.url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return nil
}
