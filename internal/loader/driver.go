package loader

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// Phase is the driver's lifecycle state.
type Phase int

// Driver phases.
const (
	PhaseRunning Phase = iota
	PhaseCompleting
	PhaseFinished
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseCompleting:
		return "completing"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText lets frames carry the phase name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

const (
	easing        = 0.04
	phaseStep     = 0.05
	snapAt        = 99.5
	slowLow       = 70.0
	slowHigh      = 85.0
	slowFactor    = 0.3
	baseIncrement = 0.1
	jitterRange   = 0.3
	waveWidth     = 900
	waveHeight    = 200
	waveStep      = 10
	waveFrequency = 0.015
	waveAmplitude = 12.0
)

type statusStep struct {
	threshold float64
	text      string
}

var statusTable = []statusStep{
	{0, "System Boot"},
	{15, "Kernel.sync(assets)"},
	{40, "Neural.init(core)"},
	{65, "UI.render(shell)"},
	{85, "Build.finalize()"},
}

// StatusFor returns the message of the highest threshold not above progress.
func StatusFor(progress float64) string {
	text := statusTable[0].text
	for _, step := range statusTable {
		if progress >= step.threshold {
			text = step.text
		}
	}
	return text
}

// Frame is one rendered state of the animation.
type Frame struct {
	Tick      int     `json:"tick"`
	Progress  float64 `json:"progress"`
	Percent   int     `json:"percent"`
	Status    string  `json:"status"`
	Wave      string  `json:"wave,omitempty"`
	Phase     Phase   `json:"phase"`
	Ready     bool    `json:"ready"`
	Unmounted bool    `json:"unmounted"`
}

// Config tunes timing. A zero FrameInterval runs ticks back to back, which
// tests and offline renderers rely on.
type Config struct {
	FrameInterval time.Duration
	HoldDelay     time.Duration
	UnmountDelay  time.Duration
	// MaxTicks forces completion after this many ticks when positive.
	MaxTicks int
	// Rand supplies jitter; a randomly seeded source is used when nil.
	Rand *rand.Rand
	// OmitWave skips building the SVG wave path for each frame.
	OmitWave bool
}

// Driver owns the progress state for a single mount. It is not safe for
// concurrent use; Run confines it to the calling goroutine.
type Driver struct {
	cfg       Config
	rng       *rand.Rand
	target    float64
	displayed float64
	wavePhase float64
	tick      int
	phase     Phase
	ready     bool
}

// New creates a Driver at progress 0.
func New(cfg Config) *Driver {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Driver{cfg: cfg, rng: rng}
}

// Phase reports the current lifecycle phase.
func (d *Driver) Phase() Phase {
	return d.phase
}

// Step advances the simulation by one tick. Outside the running phase it
// returns the current frame unchanged.
func (d *Driver) Step() Frame {
	if d.phase != PhaseRunning {
		return d.Frame()
	}
	d.tick++
	if d.target < 100 {
		increment := d.rng.Float64()*jitterRange + baseIncrement
		if d.target > slowLow && d.target < slowHigh {
			increment *= slowFactor
		}
		d.target += increment
	}
	d.displayed += (d.target - d.displayed) * easing
	d.wavePhase += phaseStep

	if d.displayed >= snapAt || (d.cfg.MaxTicks > 0 && d.tick >= d.cfg.MaxTicks) {
		d.displayed = 100
		d.phase = PhaseCompleting
	}
	return d.Frame()
}

// Frame renders the current state without advancing it.
func (d *Driver) Frame() Frame {
	f := Frame{
		Tick:     d.tick,
		Progress: d.displayed,
		Percent:  int(math.Floor(d.displayed)),
		Status:   StatusFor(d.displayed),
		Phase:    d.phase,
		Ready:    d.ready,
	}
	if !d.cfg.OmitWave {
		f.Wave = WavePath(d.displayed, d.wavePhase)
	}
	return f
}

// RenderFunc receives frames as they are produced. Returning an error stops
// the driver.
type RenderFunc func(Frame) error

// Run drives the animation to completion, calling render for every tick, once
// when the page-ready flag is raised, and once more on unmount. Cancelling ctx
// abandons the pending frame and returns ctx's error.
func (d *Driver) Run(ctx context.Context, render RenderFunc) error {
	next := d.frameWaiter()
	defer next.stop()

	if err := render(d.Step()); err != nil {
		return err
	}
	for d.phase == PhaseRunning {
		if err := next.wait(ctx); err != nil {
			return err
		}
		if err := render(d.Step()); err != nil {
			return err
		}
	}

	if err := sleep(ctx, d.cfg.HoldDelay); err != nil {
		return err
	}
	if err := render(d.Finish()); err != nil {
		return err
	}

	if err := sleep(ctx, d.cfg.UnmountDelay); err != nil {
		return err
	}
	return render(d.Unmount())
}

// Finish raises the page-ready flag once the driver is completing. It is a
// no-op while still running.
func (d *Driver) Finish() Frame {
	if d.phase == PhaseCompleting {
		d.phase = PhaseFinished
		d.ready = true
	}
	return d.Frame()
}

// Unmount returns the final frame of a finished driver.
func (d *Driver) Unmount() Frame {
	f := d.Frame()
	f.Unmounted = d.phase == PhaseFinished
	return f
}

// Config returns the timing the driver was built with.
func (d *Driver) Config() Config {
	return d.cfg
}

type frameWaiter struct {
	ticker *time.Ticker
}

func (d *Driver) frameWaiter() frameWaiter {
	if d.cfg.FrameInterval <= 0 {
		return frameWaiter{}
	}
	return frameWaiter{ticker: time.NewTicker(d.cfg.FrameInterval)}
}

func (w frameWaiter) wait(ctx context.Context) error {
	if w.ticker == nil {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("loader canceled: %w", err)
		}
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("loader canceled: %w", ctx.Err())
	case <-w.ticker.C:
		return nil
	}
}

func (w frameWaiter) stop() {
	if w.ticker != nil {
		w.ticker.Stop()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("loader canceled: %w", err)
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("loader canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// WavePath builds the SVG mask path for a 900x200 viewbox. The wave calms
// toward 0% and 100% so the fill settles flat at both ends.
func WavePath(progress, phase float64) string {
	y := waveHeight - (progress/100)*waveHeight
	calm := math.Sin((progress / 100) * math.Pi)
	var b strings.Builder
	b.Grow(1400)
	b.WriteString("M 0 ")
	b.WriteString(strconv.Itoa(waveHeight))
	b.WriteString(" L 0 ")
	b.WriteString(formatCoord(y))
	for x := 0; x <= waveWidth; x += waveStep {
		waveY := math.Sin(float64(x)*waveFrequency+phase) * (waveAmplitude * calm)
		b.WriteString(" L ")
		b.WriteString(strconv.Itoa(x))
		b.WriteByte(' ')
		b.WriteString(formatCoord(y + waveY))
	}
	fmt.Fprintf(&b, " L %d %s L %d %d Z", waveWidth, formatCoord(y), waveWidth, waveHeight)
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
