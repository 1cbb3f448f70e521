package vitals

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

// ErrBrowserClosed is returned by Measure after Close.
var ErrBrowserClosed = errors.New("vitals browser closed")

// Config tunes the headless browser.
type Config struct {
	UserAgent  string
	NavTimeout time.Duration
	Viewport   metricstore.Viewport
	// QPS caps navigations per second against a single host; zero disables it.
	QPS float64
	// ExecPath points at a Chrome binary; chromedp searches PATH when empty.
	ExecPath string
	Logger   *zap.Logger
}

// Browser drives one headless Chrome instance. Measure opens a fresh tab per call
// and is safe for concurrent use.
type Browser struct {
	cfg             Config
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	limiters        sync.Map

	mu     sync.Mutex
	closed bool
}

// NewBrowser launches Chrome and waits for it to accept commands.
func NewBrowser(cfg Config) (*Browser, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		cfg.Viewport = metricstore.Viewport{Width: 1366, Height: 768}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(cfg.Viewport.Width, cfg.Viewport.Height),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Browser{
		cfg:             cfg,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
	}, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.browserCancel()
	b.allocatorCancel()
	return nil
}

// Measure navigates to rawURL and returns its navigation timings once the load
// event has finished.
func (b *Browser) Measure(ctx context.Context, rawURL string) (Navigation, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return Navigation{}, ErrBrowserClosed
	}
	if err := b.waitHostBudget(ctx, rawURL); err != nil {
		return Navigation{}, err
	}

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	taskCtx, cancelTask := context.WithTimeout(tabCtx, b.cfg.NavTimeout)
	defer cancelTask()
	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	doc := &documentResponse{}
	chromedp.ListenTarget(tabCtx, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		doc.record(int(resp.Response.Status), resp.Response.URL)
	})

	var raw string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetDeviceMetricsOverride(int64(b.cfg.Viewport.Width), int64(b.cfg.Viewport.Height), 1, false),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.PollFunction(navigationScript, &raw,
			chromedp.WithPollingInterval(50*time.Millisecond),
			chromedp.WithPollingTimeout(b.cfg.NavTimeout),
		),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return Navigation{}, fmt.Errorf("measure %s: %w", rawURL, err)
	}

	nav, err := ParseNavigation(raw)
	if err != nil {
		return Navigation{}, fmt.Errorf("measure %s: %w", rawURL, err)
	}
	nav.URL = rawURL
	nav.Status, nav.FinalURL = doc.get(rawURL)
	b.cfg.Logger.Debug("navigation measured",
		zap.String("url", rawURL),
		zap.Int("status", nav.Status),
		zap.Float64("load_ms", nav.LoadEventEnd),
	)
	return nav, nil
}

type documentResponse struct {
	once   sync.Once
	mu     sync.Mutex
	status int
	url    string
}

func (d *documentResponse) record(status int, finalURL string) {
	d.once.Do(func() {
		d.mu.Lock()
		d.status, d.url = status, finalURL
		d.mu.Unlock()
	})
}

func (d *documentResponse) get(fallback string) (int, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.url == "" {
		return d.status, fallback
	}
	return d.status, d.url
}

func (b *Browser) waitHostBudget(ctx context.Context, rawURL string) error {
	if b.cfg.QPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse vitals url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := b.limiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(b.cfg.QPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
