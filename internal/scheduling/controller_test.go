package scheduling

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JakeFAU/zerovo-site/internal/clock"
	"github.com/JakeFAU/zerovo-site/internal/perf"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestControllerOpenPreloadsAndExposesIframe(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	timer := &fakeTimer{}
	ctrl := NewController(Options{
		Namespace:   "30min",
		DefaultLink: "ravi-zerovo/30min",
		UI:          DefaultUIConfig("", ""),
		Client:      client,
		Timer:       timer,
	})

	_, err := ctrl.IframeURL()
	require.ErrorIs(t, err, ErrNotLoaded)

	st := ctrl.Open(context.Background(), "")
	require.True(t, st.ModalOpen)
	require.True(t, st.ScrollLocked)
	require.Empty(t, st.IframeURL, "iframe is never offered before preload success")
	ctrl.Wait()

	require.Equal(t, Loaded, ctrl.State())
	u, err := ctrl.IframeURL()
	require.NoError(t, err)
	require.Equal(t, "https://cal.com/ravi-zerovo/30min?embed=true&theme=auto&layout=month_view", u)
	require.Equal(t, []string{"start-load", "end-load", "start-render"}, timer.Events())
	require.Equal(t, "month_view", client.lastUI().Layout)
	require.Equal(t, "#38bdf8", client.lastUI().BrandColor)

	require.NoError(t, ctrl.RenderComplete(context.Background()))
	require.Equal(t, "end-render", timer.Events()[3])
}

func TestControllerCloseThenOpenReusesLoadedWidget(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	ctrl := NewController(Options{DefaultLink: "a/b", Client: client})

	ctrl.Open(context.Background(), "")
	ctrl.Wait()
	st := ctrl.Close()
	require.False(t, st.ModalOpen)
	require.False(t, st.ScrollLocked)
	require.Equal(t, Loaded, st.State)

	st = ctrl.Open(context.Background(), "")
	ctrl.Wait()
	require.Equal(t, Loaded, st.State)
	require.NotEmpty(t, st.IframeURL)
	require.EqualValues(t, 1, client.inits.Load())
}

func TestControllerRetryPassesThroughPreloading(t *testing.T) {
	t.Parallel()

	client := &fakeClient{err: errors.New("network down")}
	timer := &fakeTimer{}
	ctrl := NewController(Options{Namespace: "15min", DefaultLink: "a/b", Client: client, Timer: timer})

	ctrl.Open(context.Background(), "")
	ctrl.Wait()
	st := ctrl.Status()
	require.Equal(t, Failed, st.State)
	require.Equal(t, "network down", st.Error)
	require.False(t, st.Fallback)
	require.Contains(t, timer.Events(), "error")

	gate := make(chan struct{})
	client.setErr(nil)
	client.setGate(gate)
	st = ctrl.Retry(context.Background())
	require.Equal(t, Preloading, st.State)
	require.Empty(t, st.Error)
	close(gate)
	ctrl.Wait()
	require.Equal(t, Loaded, ctrl.State())

	st = ctrl.Retry(context.Background())
	require.Equal(t, Loaded, st.State)
	require.EqualValues(t, 2, client.inits.Load(), "retry on a loaded widget is a no-op")
}

func TestControllerCapturesEachFailureOnce(t *testing.T) {
	t.Parallel()

	tracker := &fakeTracker{}
	rec := perf.NewRecorder(perf.Options{Clock: clock.NewManual(time.Unix(0, 0)), Errors: tracker})
	client := &fakeClient{err: errors.New("network down")}
	ctrl := NewController(Options{Namespace: "15min", DefaultLink: "a/b", Client: client, Timer: rec, Errors: tracker})

	ctrl.Open(context.Background(), "")
	ctrl.Wait()
	require.Equal(t, 1, tracker.count())
	ctrl.Retry(context.Background())
	ctrl.Wait()
	require.Equal(t, 2, tracker.count())

	// Without a timer the controller reports to the tracker itself.
	direct := &fakeTracker{}
	bare := NewController(Options{Namespace: "15min", DefaultLink: "a/b", Client: client, Errors: direct})
	bare.Open(context.Background(), "")
	bare.Wait()
	require.Equal(t, 1, direct.count())
}

func TestControllerPanicTripsGuard(t *testing.T) {
	t.Parallel()

	var panicking atomic.Bool
	panicking.Store(true)
	client := WidgetClientFunc(func(context.Context, string) (WidgetAPI, error) {
		if panicking.Load() {
			panic("embed exploded")
		}
		return &EmbedAPI{}, nil
	})
	ctrl := NewController(Options{DefaultLink: "a/b", Client: client})

	ctrl.Open(context.Background(), "")
	ctrl.Wait()
	st := ctrl.Status()
	require.Equal(t, Failed, st.State)
	require.True(t, st.Fallback)
	require.Contains(t, st.Error, "embed exploded")

	panicking.Store(false)
	ctrl.Retry(context.Background())
	ctrl.Wait()
	st = ctrl.Status()
	require.Equal(t, Loaded, st.State)
	require.False(t, st.Fallback)
}

func TestControllerUnmountDoesNotCancelPreload(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	client := &fakeClient{}
	client.setGate(gate)
	lock := NewScrollLock(BodyStyle{Overflow: "auto"})
	ctrl := NewController(Options{DefaultLink: "a/b", Client: client, ScrollLock: lock})

	ctx, cancel := context.WithCancel(context.Background())
	ctrl.Open(ctx, "")
	cancel()
	require.Equal(t, "hidden", lock.Body().Overflow)

	ctrl.Unmount()
	require.False(t, lock.Locked())
	require.Equal(t, "auto", lock.Body().Overflow)

	close(gate)
	ctrl.Wait()
	require.Equal(t, Loaded, ctrl.State())
	require.False(t, ctrl.ModalOpen())
}

func TestControllerPreloadTimeout(t *testing.T) {
	t.Parallel()

	client := WidgetClientFunc(func(ctx context.Context, _ string) (WidgetAPI, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	ctrl := NewController(Options{DefaultLink: "a/b", Client: client, PreloadTimeout: 10 * time.Millisecond})

	ctrl.Open(context.Background(), "")
	ctrl.Wait()
	require.Equal(t, Failed, ctrl.State())
	require.Contains(t, ctrl.Status().Error, context.DeadlineExceeded.Error())
}

func TestControllerOpenWithLinkOverride(t *testing.T) {
	t.Parallel()

	ctrl := NewController(Options{DefaultLink: "a/b", IframeBaseURL: "https://cal.example/", Client: &fakeClient{}})
	ctrl.Open(context.Background(), "someone/15min")
	ctrl.Wait()

	u, err := ctrl.IframeURL()
	require.NoError(t, err)
	require.Equal(t, "https://cal.example/someone/15min?embed=true&theme=auto&layout=month_view", u)
}

func TestScrollLockCountsHolders(t *testing.T) {
	t.Parallel()

	lock := NewScrollLock(BodyStyle{Overflow: "scroll"})
	releaseA := lock.Acquire()
	releaseB := lock.Acquire()
	require.Equal(t, "hidden", lock.Body().Overflow)

	releaseA()
	releaseA()
	require.True(t, lock.Locked(), "double release must not drop another holder")

	releaseB()
	require.False(t, lock.Locked())
	require.Equal(t, "scroll", lock.Body().Overflow)
}

func TestGuardPassesOrdinaryErrors(t *testing.T) {
	t.Parallel()

	g := NewGuard(nil)
	boom := errors.New("boom")
	require.ErrorIs(t, g.Do(func() error { return boom }), boom)
	require.NoError(t, g.Cause())

	err := g.Do(func() error { panic("bad") })
	require.ErrorIs(t, err, ErrGuardTripped)
	require.ErrorIs(t, g.Do(func() error { return nil }), ErrGuardTripped)

	g.Reset()
	require.NoError(t, g.Do(func() error { return nil }))
}

func TestEmbedClientInit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embed.js":
			_, _ = w.Write([]byte("(function(){})()"))
		case "/empty.js":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api, err := NewEmbedClient(srv.URL+"/embed.js", srv.Client(), nil).Init(context.Background(), "30min")
	require.NoError(t, err)
	require.NoError(t, api.Configure(context.Background(), DefaultUIConfig("#000000", "")))
	ui, ok := api.(*EmbedAPI).UI()
	require.True(t, ok)
	require.Equal(t, "#000000", ui.BrandColor)
	require.Error(t, api.Configure(context.Background(), UIConfig{}))

	_, err = NewEmbedClient(srv.URL+"/missing.js", srv.Client(), nil).Init(context.Background(), "30min")
	require.ErrorContains(t, err, "status 404")

	_, err = NewEmbedClient(srv.URL+"/empty.js", srv.Client(), nil).Init(context.Background(), "30min")
	require.ErrorContains(t, err, "empty")

	_, err = NewEmbedClient("", nil, nil).Init(context.Background(), "30min")
	require.Error(t, err)
}

func TestStateText(t *testing.T) {
	t.Parallel()

	for state, want := range map[State]string{Idle: "idle", Preloading: "preloading", Loaded: "loaded", Failed: "error"} {
		text, err := state.MarshalText()
		require.NoError(t, err)
		require.Equal(t, want, string(text))
	}
	require.Equal(t, "State(9)", State(9).String())
}

type fakeClient struct {
	inits atomic.Int64

	mu   sync.Mutex
	err  error
	gate chan struct{}
	ui   UIConfig
}

func (f *fakeClient) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeClient) setGate(gate chan struct{}) {
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
}

func (f *fakeClient) lastUI() UIConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ui
}

func (f *fakeClient) Init(context.Context, string) (WidgetAPI, error) {
	f.inits.Add(1)
	f.mu.Lock()
	gate, err := f.gate, f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (f *fakeClient) Configure(_ context.Context, ui UIConfig) error {
	f.mu.Lock()
	f.ui = ui
	f.mu.Unlock()
	return nil
}

type fakeTimer struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeTimer) add(e string) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fakeTimer) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeTimer) StartLoadTimer(string)                      { f.add("start-load") }
func (f *fakeTimer) EndLoadTimer(context.Context, string)       { f.add("end-load") }
func (f *fakeTimer) StartRenderTimer(string)                    { f.add("start-render") }
func (f *fakeTimer) EndRenderTimer(context.Context, string)     { f.add("end-render") }
func (f *fakeTimer) RecordError(context.Context, error, string) { f.add("error") }

type fakeTracker struct {
	mu   sync.Mutex
	errs []error
}

func (f *fakeTracker) Capture(_ context.Context, err error, _ map[string]string) {
	f.mu.Lock()
	f.errs = append(f.errs, err)
	f.mu.Unlock()
}

func (f *fakeTracker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errs)
}
