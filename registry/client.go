package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/clients"
)

// ClientConfig configures the Registry Client's self-registration (§4.8).
// HeartbeatInterval must be strictly less than TTLSeconds.
type ClientConfig struct {
	RegistryURL       string
	DeploymentID      string
	DeploymentName    string
	Host              string
	Port              int
	WorkflowName      string
	Metadata          map[string]any
	TTLSeconds        int
	HeartbeatInterval time.Duration
	RequestTimeout    time.Duration
}

// Client registers a deployment with the registry and keeps its lease alive
// with a heartbeat loop.
type Client struct {
	cfg    ClientConfig
	http   *clients.HTTPClient
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient validates cfg and creates a registry Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.HeartbeatInterval >= time.Duration(cfg.TTLSeconds)*time.Second {
		return nil, fmt.Errorf("heartbeat_interval (%s) must be less than ttl_seconds (%ds)", cfg.HeartbeatInterval, cfg.TTLSeconds)
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	return &Client{
		cfg:  cfg,
		http: clients.NewHTTPClient(httpClient, noopClientLogger{}),
	}, nil
}

// Register performs the initial registration call.
func (c *Client) Register(ctx context.Context) error {
	body, _ := json.Marshal(registerRequest{
		DeploymentID:   c.cfg.DeploymentID,
		DeploymentName: c.cfg.DeploymentName,
		Host:           c.cfg.Host,
		Port:           c.cfg.Port,
		TTLSeconds:     c.cfg.TTLSeconds,
		WorkflowName:   c.cfg.WorkflowName,
		Metadata:       c.cfg.Metadata,
	})
	resp, err := c.http.DoRequest(ctx, http.MethodPost, c.cfg.RegistryURL+"/deployments/register", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("register: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// StartHeartbeatLoop registers once, then starts a background heartbeat
// loop that POSTs at HeartbeatInterval until ctx is cancelled or Stop is
// called. Transient HTTP errors are logged and retried at the next tick.
func (c *Client) StartHeartbeatLoop(ctx context.Context) error {
	if err := c.Register(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if err := c.heartbeat(loopCtx); err != nil {
					slog.Warn("registry heartbeat failed, retrying next tick", "deployment_id", c.cfg.DeploymentID, "error", err)
				}
			}
		}
	}()
	return nil
}

func (c *Client) heartbeat(ctx context.Context) error {
	url := fmt.Sprintf("%s/deployments/%s/heartbeat", c.cfg.RegistryURL, c.cfg.DeploymentID)
	resp, err := c.http.DoRequest(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Stop cancels the heartbeat loop and waits for it to exit cleanly.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

// Deregister makes a best-effort attempt to remove the lease; errors are
// logged, never returned, since shutdown must proceed regardless (§4.8).
func (c *Client) Deregister(ctx context.Context) {
	url := fmt.Sprintf("%s/deployments/%s", c.cfg.RegistryURL, c.cfg.DeploymentID)
	resp, err := c.http.DoRequest(ctx, http.MethodDelete, url, nil)
	if err != nil {
		slog.Warn("best-effort deregister failed", "deployment_id", c.cfg.DeploymentID, "error", err)
		return
	}
	defer resp.Body.Close()
}

type noopClientLogger struct{}

func (noopClientLogger) Info(string, ...interface{})  {}
func (noopClientLogger) Error(string, ...interface{}) {}
func (noopClientLogger) Warn(string, ...interface{})  {}
func (noopClientLogger) Debug(string, ...interface{}) {}
