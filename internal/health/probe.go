package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Prober polls a URL over HTTP until the application answers
type Prober struct {
	Client   *http.Client
	Interval time.Duration
	Logf     func(format string, args ...interface{})
}

// Reachable performs one GET and reports whether it returned a 2xx status
func (p *Prober) Reachable(ctx context.Context, url string) error {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return nil
}

// WaitReady polls baseURL+path until it answers or timeout elapses
func (p *Prober) WaitReady(ctx context.Context, baseURL, path string, timeout time.Duration) error {
	url := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	interval := p.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	start := time.Now()
	deadline := start.Add(timeout)
	var last error
	for attempt := 1; ; attempt++ {
		if last = p.Reachable(ctx, url); last == nil {
			if p.Logf != nil {
				p.Logf("%s ready after %d attempt(s) (%.0fms)", url, attempt, time.Since(start).Seconds()*1000)
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s not ready after %s: %w", url, timeout, last)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
