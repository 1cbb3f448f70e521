package scheduling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WidgetClient initializes the widget API for a namespace.
type WidgetClient interface {
	Init(ctx context.Context, namespace string) (WidgetAPI, error)
}

// WidgetAPI is the initialized widget handle.
type WidgetAPI interface {
	Configure(ctx context.Context, ui UIConfig) error
}

// WidgetClientFunc adapts a function to WidgetClient.
type WidgetClientFunc func(ctx context.Context, namespace string) (WidgetAPI, error)

// Init calls f.
func (f WidgetClientFunc) Init(ctx context.Context, namespace string) (WidgetAPI, error) {
	return f(ctx, namespace)
}

// EmbedClient is the production WidgetClient. It fetches the vendor embed
// script to prove the widget is reachable before the browser is told to
// render the iframe.
type EmbedClient struct {
	scriptURL string
	http      *http.Client
	logger    *zap.Logger
}

// NewEmbedClient targets scriptURL. A nil client gets a 15s timeout default.
func NewEmbedClient(scriptURL string, client *http.Client, logger *zap.Logger) *EmbedClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbedClient{scriptURL: scriptURL, http: client, logger: logger}
}

// Init downloads the embed script and returns a handle for namespace.
func (c *EmbedClient) Init(ctx context.Context, namespace string) (WidgetAPI, error) {
	if c.scriptURL == "" {
		return nil, errors.New("embed script url is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.scriptURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch embed script: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch embed script: status %d", resp.StatusCode)
	}
	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed script: %w", err)
	}
	if n == 0 {
		return nil, errors.New("embed script is empty")
	}
	c.logger.Debug("embed script fetched", zap.String("namespace", namespace), zap.Int64("bytes", n))
	return &EmbedAPI{namespace: namespace}, nil
}

// EmbedAPI records the UI configuration for a namespace so it can be handed to
// the browser alongside the iframe URL.
type EmbedAPI struct {
	namespace string

	mu sync.Mutex
	ui *UIConfig
}

// Configure stores ui.
func (a *EmbedAPI) Configure(_ context.Context, ui UIConfig) error {
	if ui.Layout == "" {
		return errors.New("ui layout is required")
	}
	a.mu.Lock()
	a.ui = &ui
	a.mu.Unlock()
	return nil
}

// UI returns the applied configuration, if any.
func (a *EmbedAPI) UI() (UIConfig, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ui == nil {
		return UIConfig{}, false
	}
	return *a.ui, true
}
