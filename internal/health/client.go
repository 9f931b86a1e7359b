package health

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// Report is the wire form accepted by the aux /health/report endpoint.
type Report struct {
	Process string `json:"process"`
	State   string `json:"state"`
	Detail  string `json:"detail,omitempty"`
	Port    int    `json:"port,omitempty"`
	PID     int    `json:"pid,omitempty"`
}

// Client periodically POSTs its own liveness to another instance's aux
// surface. Sidecar processes use this to appear in the main instance's
// registry.
type Client struct {
	process  string
	endpoint string
	port     int
	interval time.Duration
	http     *http.Client
	log      *zap.Logger
}

func NewClient(process, endpoint string, interval time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		process:  process,
		endpoint: endpoint,
		interval: interval,
		http:     &http.Client{Timeout: 3 * time.Second},
		log:      log,
	}
}

// WithPort sets the port advertised in each report.
func (c *Client) WithPort(port int) *Client {
	c.port = port
	return c
}

// Run reports immediately, then on every tick until ctx is canceled.
// Delivery is best effort; failures are logged and retried next tick.
func (c *Client) Run(ctx context.Context) {
	c.report(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.report(ctx)
		}
	}
}

func (c *Client) report(ctx context.Context) {
	body, err := json.Marshal(Report{Process: c.process, State: StateOK, Port: c.port, PID: os.Getpid()})
	if err != nil {
		c.log.Warn("encode health report", zap.Error(err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.log.Warn("build health report", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("deliver health report", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("health report rejected", zap.Error(fmt.Errorf("status %d", resp.StatusCode)))
	}
}
