package loop

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/daichi0525/aina-YTLoop/internal/obs"
	"github.com/daichi0525/aina-YTLoop/internal/youtube"
)

// StopReason indicates why the loop stopped.
type StopReason int

const (
	StopReasonUnknown       StopReason = iota
	StopReasonMaxIterations            // Hit iteration limit
	StopReasonMaxDuration              // Hit duration limit
	StopReasonExpired                  // Passed the wall-clock expiration
	StopReasonCancelled                // Context cancelled (signal or parent)
)

// String returns a human-readable description of the stop reason.
func (r StopReason) String() string {
	switch r {
	case StopReasonMaxIterations:
		return "max iterations"
	case StopReasonMaxDuration:
		return "max duration"
	case StopReasonExpired:
		return "expired"
	case StopReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a loop execution.
type Result struct {
	Reason     StopReason
	Iterations int
}

// Provisioner creates the YouTube side of one iteration.
type Provisioner interface {
	Create(ctx context.Context) (*youtube.Handle, error)
}

// Options holds configuration for creating a Controller.
// This struct enables test-friendly construction with explicit dependencies.
type Options struct {
	Provisioner Provisioner
	Control     obs.Client
	Logger      *zap.SugaredLogger

	// Termination bounds. Zero disables a bound.
	MaxIterations    int
	MaxDurationHours float64
	ExpiresAt        time.Time

	// Pacing.
	RetryBackoff   time.Duration
	IterationDelay time.Duration
	HoldDuration   time.Duration
	PollInterval   time.Duration
	StartTimeout   time.Duration

	// Ingest endpoint OBS streams to. The key comes from each
	// iteration's provisioned stream.
	RTMPServer  string
	ServiceName string

	// Periodic source refresh during the hold window.
	RefreshEnabled  bool
	RefreshInterval time.Duration
	RefreshSources  []string

	StartTime time.Time // Optional: for deterministic time-based testing
}

// Controller runs the recurring broadcast loop.
type Controller struct {
	opts        Options
	logger      *zap.SugaredLogger
	iteration   int
	startTime   time.Time
	lastRefresh time.Time
}

// New creates a Controller from options.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Controller{
		opts:      opts,
		logger:    logger,
		startTime: opts.StartTime,
	}
}

// Run executes the broadcast loop until a termination bound is hit or
// the context is cancelled. It returns a Result indicating why the
// loop stopped. The OBS connection is torn down on the way out.
func (c *Controller) Run(ctx context.Context) Result {
	// Use injected start time if set, otherwise use current time
	if c.startTime.IsZero() {
		c.startTime = time.Now()
	}
	// Refresh cadence spans hold windows
	c.lastRefresh = time.Now()
	defer c.opts.Control.Disconnect()

	for {
		// Check context cancellation
		if ctx.Err() != nil {
			return Result{Reason: StopReasonCancelled, Iterations: c.iteration}
		}

		// Check iteration limit
		if c.opts.MaxIterations > 0 && c.iteration >= c.opts.MaxIterations {
			return Result{Reason: StopReasonMaxIterations, Iterations: c.iteration}
		}

		// Check duration limit
		if c.checkDurationLimit() {
			return Result{Reason: StopReasonMaxDuration, Iterations: c.iteration}
		}

		// Check expiration
		if !c.opts.ExpiresAt.IsZero() && !time.Now().Before(c.opts.ExpiresAt) {
			return Result{Reason: StopReasonExpired, Iterations: c.iteration}
		}

		if err := c.runIteration(ctx); err != nil {
			if ctx.Err() != nil {
				return Result{Reason: StopReasonCancelled, Iterations: c.iteration}
			}
			c.logger.Errorw("iteration failed, retrying",
				"error", err,
				"backoff", c.opts.RetryBackoff,
			)
			if serr := sleepCtx(ctx, c.opts.RetryBackoff); serr != nil {
				return Result{Reason: StopReasonCancelled, Iterations: c.iteration}
			}
			continue
		}

		c.iteration++
		c.logger.Infow("iteration completed", "iteration", c.iteration)

		if serr := sleepCtx(ctx, c.opts.IterationDelay); serr != nil {
			return Result{Reason: StopReasonCancelled, Iterations: c.iteration}
		}
	}
}

// runIteration provisions one broadcast, streams it for the hold
// window, and stops the output. The panic guard keeps one bad
// iteration from taking down the loop.
func (c *Controller) runIteration(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration panicked: %v", r)
		}
	}()

	handle, err := c.opts.Provisioner.Create(ctx)
	if err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}

	target := obs.StreamTarget{
		Server:  c.opts.RTMPServer,
		Key:     handle.StreamKey,
		Service: c.opts.ServiceName,
	}
	if err := c.opts.Control.ApplyStreamTarget(ctx, target); err != nil {
		return fmt.Errorf("failed to point obs at broadcast %s: %w", handle.BroadcastID, err)
	}

	if err := c.opts.Control.StartStream(ctx); err != nil {
		c.logger.Warnw("start stream request failed", "error", err)
	}

	active, err := c.opts.Control.WaitForActive(ctx, c.opts.StartTimeout)
	if err != nil {
		return fmt.Errorf("failed waiting for stream output: %w", err)
	}
	if !active {
		return fmt.Errorf("stream did not become active within %s", c.opts.StartTimeout)
	}

	c.logger.Infow("stream is live",
		"broadcast", handle.BroadcastID,
		"duration", c.opts.HoldDuration,
	)

	if err := c.hold(ctx); err != nil {
		return err
	}

	if err := c.opts.Control.StopStream(ctx); err != nil {
		c.logger.Warnw("stop stream request failed", "error", err)
	}
	return nil
}

// hold keeps the broadcast live for the hold window, refreshing
// configured sources on the side.
func (c *Controller) hold(ctx context.Context) error {
	endAt := time.Now().Add(c.opts.HoldDuration)

	for {
		remaining := time.Until(endAt)
		if remaining <= 0 {
			return nil
		}
		step := c.opts.PollInterval
		if step > remaining {
			step = remaining
		}
		if err := sleepCtx(ctx, step); err != nil {
			return err
		}
		if c.refreshDue() {
			c.lastRefresh = time.Now()
			c.refreshSources(ctx)
		}
	}
}

func (c *Controller) refreshDue() bool {
	if !c.opts.RefreshEnabled || len(c.opts.RefreshSources) == 0 {
		return false
	}
	return time.Since(c.lastRefresh) >= c.opts.RefreshInterval
}

// refreshSources reloads each configured source. Failures are isolated
// per source so one broken input cannot stall the others.
func (c *Controller) refreshSources(ctx context.Context) {
	if scene, err := c.opts.Control.CurrentScene(ctx); err == nil {
		c.logger.Debugw("refreshing sources", "scene", scene)
	}
	for _, name := range c.opts.RefreshSources {
		if err := c.opts.Control.RefreshSource(ctx, name); err != nil {
			c.logger.Warnw("failed to refresh source", "source", name, "error", err)
		}
	}
}

// checkDurationLimit checks if the max duration has been exceeded.
func (c *Controller) checkDurationLimit() bool {
	if c.opts.MaxDurationHours <= 0 {
		return false
	}
	maxDuration := time.Duration(c.opts.MaxDurationHours * float64(time.Hour))
	return time.Since(c.startTime) >= maxDuration
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
