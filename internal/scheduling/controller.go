package scheduling

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const tracerName = "github.com/JakeFAU/zerovo-site/internal/scheduling"

// Timer receives widget phase timings. *perf.Recorder satisfies it.
type Timer interface {
	StartLoadTimer(id string)
	EndLoadTimer(ctx context.Context, id string)
	StartRenderTimer(id string)
	EndRenderTimer(ctx context.Context, id string)
	RecordError(ctx context.Context, err error, id string)
}

// ErrorTracker is an optional external error-reporting capability.
type ErrorTracker interface {
	Capture(ctx context.Context, err error, tags map[string]string)
}

// Options configures a Controller. TimerID keys the controller's phase
// timings and defaults to Namespace. Errors is used only when Timer is nil;
// a Timer reports failures itself.
type Options struct {
	Namespace      string
	TimerID        string
	DefaultLink    string
	IframeBaseURL  string
	UI             UIConfig
	Client         WidgetClient
	Timer          Timer
	Errors         ErrorTracker
	ScrollLock     *ScrollLock
	PreloadTimeout time.Duration
	Logger         *zap.Logger
}

// Status is the JSON view of a controller.
type Status struct {
	Namespace    string   `json:"namespace"`
	State        State    `json:"state"`
	ModalOpen    bool     `json:"modalOpen"`
	Link         string   `json:"link,omitempty"`
	IframeURL    string   `json:"iframeUrl,omitempty"`
	Error        string   `json:"error,omitempty"`
	Fallback     bool     `json:"fallback"`
	ScrollLocked bool     `json:"scrollLocked"`
	UI           UIConfig `json:"ui"`
}

// Controller owns one widget namespace. State changes are serialized; preload
// runs on its own goroutine and is not cancelled by Close or Unmount.
type Controller struct {
	opts  Options
	guard *Guard

	mu        sync.Mutex
	state     State
	modalOpen bool
	link      string
	err       error
	release   func()
	attempt   uint64

	wg sync.WaitGroup
}

// NewController builds an idle Controller.
func NewController(opts Options) *Controller {
	if opts.Namespace == "" {
		opts.Namespace = "30min"
	}
	if opts.IframeBaseURL == "" {
		opts.IframeBaseURL = "https://cal.com"
	}
	if opts.UI.Layout == "" {
		opts.UI = DefaultUIConfig(opts.UI.BrandColor, "")
	}
	if opts.TimerID == "" {
		opts.TimerID = opts.Namespace
	}
	if opts.ScrollLock == nil {
		opts.ScrollLock = NewScrollLock(BodyStyle{})
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Logger = opts.Logger.With(zap.String("namespace", opts.Namespace))
	return &Controller{opts: opts, guard: NewGuard(opts.Logger), link: opts.DefaultLink}
}

// Namespace returns the controller's namespace.
func (c *Controller) Namespace() string {
	return c.opts.Namespace
}

// Open shows the modal shell and starts the preload unless one is already
// running or has succeeded. An empty link keeps the current one.
func (c *Controller) Open(ctx context.Context, link string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if link != "" {
		c.link = link
	}
	if !c.modalOpen {
		c.modalOpen = true
		c.release = c.opts.ScrollLock.Acquire()
	}
	if c.state != Loaded && c.state != Preloading {
		c.startPreloadLocked(ctx)
	}
	return c.statusLocked()
}

// Close hides the modal. A loaded widget stays loaded for the next Open.
func (c *Controller) Close() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return c.statusLocked()
}

// Retry re-runs a failed preload. It also clears a tripped guard. Retrying a
// controller that is loaded or preloading changes nothing.
func (c *Controller) Retry(ctx context.Context) Status {
	c.guard.Reset()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Failed || c.state == Idle {
		c.startPreloadLocked(ctx)
	}
	return c.statusLocked()
}

// RenderComplete marks the iframe as rendered in the browser.
func (c *Controller) RenderComplete(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.state == Loaded
	c.mu.Unlock()
	if !loaded {
		return ErrNotLoaded
	}
	if c.opts.Timer != nil {
		c.opts.Timer.EndRenderTimer(ctx, c.opts.TimerID)
	}
	return nil
}

// Unmount releases the scroll lock. An in-flight preload keeps running.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// timingClearer is satisfied by timers that hold per-id records.
type timingClearer interface {
	Clear(ids ...string)
}

// forgetTimings drops the controller's timing record once it is retired.
func (c *Controller) forgetTimings() {
	if tc, ok := c.opts.Timer.(timingClearer); ok {
		tc.Clear(c.opts.TimerID)
	}
}

// Wait blocks until in-flight preloads finish.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ModalOpen reports whether the modal shell is shown.
func (c *Controller) ModalOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modalOpen
}

// IframeURL returns the embed URL, or ErrNotLoaded before a successful preload.
func (c *Controller) IframeURL() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iframeURLLocked()
}

// Status snapshots the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) closeLocked() {
	c.modalOpen = false
	if c.release != nil {
		c.release()
		c.release = nil
	}
}

func (c *Controller) iframeURLLocked() (string, error) {
	if c.state != Loaded {
		return "", ErrNotLoaded
	}
	return fmt.Sprintf("%s/%s?embed=true&theme=auto&layout=%s",
		strings.TrimRight(c.opts.IframeBaseURL, "/"),
		strings.TrimLeft(c.link, "/"),
		url.QueryEscape(c.opts.UI.Layout),
	), nil
}

func (c *Controller) statusLocked() Status {
	st := Status{
		Namespace:    c.opts.Namespace,
		State:        c.state,
		ModalOpen:    c.modalOpen,
		Link:         c.link,
		ScrollLocked: c.opts.ScrollLock.Locked(),
		UI:           c.opts.UI,
	}
	if u, err := c.iframeURLLocked(); err == nil {
		st.IframeURL = u
	}
	if c.err != nil {
		st.Error = c.err.Error()
	}
	st.Fallback = c.guard.Cause() != nil
	return st
}

// startPreloadLocked must be called with c.mu held.
func (c *Controller) startPreloadLocked(ctx context.Context) {
	c.state = Preloading
	c.err = nil
	c.attempt++
	attempt := c.attempt
	if c.opts.Timer != nil {
		c.opts.Timer.StartLoadTimer(c.opts.TimerID)
	}
	// The preload outlives the request that triggered it.
	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.preload(ctx, attempt)
	}()
}

func (c *Controller) preload(ctx context.Context, attempt uint64) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scheduling.preload")
	span.SetAttributes(
		attribute.String("widget.namespace", c.opts.Namespace),
		attribute.Int64("widget.attempt", int64(attempt)),
	)
	defer span.End()

	if c.opts.PreloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.PreloadTimeout)
		defer cancel()
	}

	err := c.guard.Do(func() error {
		if c.opts.Client == nil {
			return errors.New("widget client is not configured")
		}
		api, err := c.opts.Client.Init(ctx, c.opts.Namespace)
		if err != nil {
			return err
		}
		return api.Configure(ctx, c.opts.UI)
	})

	c.mu.Lock()
	if attempt != c.attempt {
		c.mu.Unlock()
		span.SetAttributes(attribute.Bool("widget.superseded", true))
		return
	}
	if err != nil {
		c.state = Failed
		c.err = err
	} else {
		c.state = Loaded
	}
	c.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "preload failed")
		c.opts.Logger.Warn("scheduling widget preload failed", zap.Uint64("attempt", attempt), zap.Error(err))
		switch {
		case c.opts.Timer != nil:
			c.opts.Timer.RecordError(ctx, err, c.opts.TimerID)
		case c.opts.Errors != nil:
			c.opts.Errors.Capture(ctx, err, map[string]string{
				"component": "scheduling-widget",
				"namespace": c.opts.Namespace,
			})
		}
		return
	}
	c.opts.Logger.Info("scheduling widget preloaded", zap.Uint64("attempt", attempt))
	if c.opts.Timer != nil {
		c.opts.Timer.EndLoadTimer(ctx, c.opts.TimerID)
		c.opts.Timer.StartRenderTimer(c.opts.TimerID)
	}
}
