package obs

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Client defines the interface for streaming control operations.
type Client interface {
	// Connect establishes the obs-websocket session. It is a no-op when
	// already connected. When the connection is refused and an app path
	// is configured, the OBS application is launched and the dial retried.
	Connect(ctx context.Context) error

	// Disconnect closes the session if one is open. Safe to call at any time.
	Disconnect()

	// ApplyStreamTarget points OBS at the given ingest endpoint,
	// stopping a live output first if one is running.
	ApplyStreamTarget(ctx context.Context, target StreamTarget) error

	// StartStream asks OBS to start the stream output.
	StartStream(ctx context.Context) error

	// StopStream asks OBS to stop the stream output.
	StopStream(ctx context.Context) error

	// WaitForActive polls the output status until it reports active or
	// timeout elapses. Returns false without error on timeout.
	WaitForActive(ctx context.Context, timeout time.Duration) (bool, error)

	// CurrentScene returns the current program scene name.
	CurrentScene(ctx context.Context) (string, error)

	// RefreshSource reloads one input. Browser sources are refreshed via
	// their cache-bypass button, media sources by re-applying their file
	// setting, and anything else by re-applying its full settings.
	RefreshSource(ctx context.Context, name string) error
}

// DialFunc opens a Transport.
type DialFunc func(ctx context.Context, opts Options) (Transport, error)

// LaunchFunc starts the OBS application.
type LaunchFunc func(path string) error

// Options holds configuration for creating a WSClient.
// This struct enables test-friendly construction with explicit dependencies.
type Options struct {
	Host     string
	Port     int
	Password string
	AppPath  string // when set, launched if the initial dial is refused

	ConnectTimeout   time.Duration
	LaunchWait       time.Duration // settle time after launching the app
	ApplyMaxAttempts int
	ApplyRetryDelay  time.Duration
	StopWaitTimeout  time.Duration
	PollInterval     time.Duration

	Logger *zap.SugaredLogger

	Dial   DialFunc   // Optional: transport dialer override for tests
	Launch LaunchFunc // Optional: app launcher override for tests
}

// WSClient implements Client over obs-websocket. It maintains a single
// connection and re-establishes it at most once per operation when a
// call fails at the connection level.
type WSClient struct {
	opts      Options
	logger    *zap.SugaredLogger
	dial      DialFunc
	launch    LaunchFunc
	transport Transport
}

// NewWSClient creates a WSClient. The connection is established lazily
// by Connect or by the first operation.
func NewWSClient(opts Options) *WSClient {
	if opts.Dial == nil {
		opts.Dial = func(ctx context.Context, o Options) (Transport, error) {
			return Dial(ctx, o.Host, o.Port, o.Password, o.ConnectTimeout)
		}
	}
	if opts.Launch == nil {
		opts.Launch = launchApp
	}
	if opts.ApplyMaxAttempts < 1 {
		opts.ApplyMaxAttempts = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &WSClient{
		opts:   opts,
		logger: opts.Logger,
		dial:   opts.Dial,
		launch: opts.Launch,
	}
}

// Connect establishes the obs-websocket session.
func (c *WSClient) Connect(ctx context.Context) error {
	if c.transport != nil {
		return nil
	}

	t, err := c.dial(ctx, c.opts)
	if err == nil {
		c.transport = t
		c.logger.Infow("connected to obs", "host", c.opts.Host, "port", c.opts.Port)
		return nil
	}

	if c.opts.AppPath == "" || !errors.Is(err, syscall.ECONNREFUSED) {
		return err
	}

	c.logger.Infow("obs not reachable, launching application", "path", c.opts.AppPath)
	if launchErr := c.launch(c.opts.AppPath); launchErr != nil {
		return fmt.Errorf("failed to launch obs: %w", launchErr)
	}
	if err := sleepCtx(ctx, c.opts.LaunchWait); err != nil {
		return err
	}

	t, err = c.dial(ctx, c.opts)
	if err != nil {
		return fmt.Errorf("obs not reachable after launch: %w", err)
	}
	c.transport = t
	c.logger.Infow("connected to obs", "host", c.opts.Host, "port", c.opts.Port)
	return nil
}

// Disconnect closes the session if one is open.
func (c *WSClient) Disconnect() {
	if c.transport == nil {
		return
	}
	if err := c.transport.Close(); err != nil {
		c.logger.Debugw("error closing obs connection", "error", err)
	}
	c.transport = nil
	c.logger.Infow("disconnected from obs")
}

// withConn runs op against the current connection, connecting first if
// needed. A connection-level failure tears the session down and the op
// is retried exactly once on a fresh connection.
func (c *WSClient) withConn(ctx context.Context, name string, op func(Transport) error) error {
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	err := op(c.transport)
	if err == nil || !IsConnectionError(err) {
		return err
	}

	c.logger.Warnw("obs connection lost, reconnecting", "op", name, "error", err)
	c.Disconnect()
	if cerr := c.Connect(ctx); cerr != nil {
		return fmt.Errorf("%s: reconnect failed: %w", name, cerr)
	}
	return op(c.transport)
}

func (c *WSClient) streamActive(ctx context.Context) (bool, error) {
	var active bool
	err := c.withConn(ctx, "get stream status", func(t Transport) error {
		var err error
		active, err = t.StreamStatus(ctx)
		return err
	})
	return active, err
}

// ApplyStreamTarget points OBS at the given ingest endpoint. If the
// output is live it is stopped first and the settings change waits for
// the output to wind down, bounded by StopWaitTimeout.
func (c *WSClient) ApplyStreamTarget(ctx context.Context, target StreamTarget) error {
	active, err := c.streamActive(ctx)
	if err != nil {
		return err
	}
	if active {
		c.logger.Infow("stream output active, stopping before applying settings")
		if err := c.StopStream(ctx); err != nil {
			c.logger.Warnw("failed to stop active stream output", "error", err)
		}
		if err := c.waitForInactive(ctx); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.ApplyMaxAttempts; attempt++ {
		err := c.withConn(ctx, "set stream service settings", func(t Transport) error {
			return t.SetStreamServiceSettings(ctx, target)
		})
		if err == nil {
			c.logger.Infow("stream settings applied", "server", target.Server, "key", maskKey(target.Key))
			return nil
		}
		lastErr = err
		c.logger.Warnw("failed to apply stream settings", "attempt", attempt, "error", err)
		if attempt < c.opts.ApplyMaxAttempts {
			if serr := sleepCtx(ctx, c.opts.ApplyRetryDelay); serr != nil {
				return serr
			}
		}
	}
	return fmt.Errorf("failed to apply stream settings after %d attempts: %w", c.opts.ApplyMaxAttempts, lastErr)
}

// waitForInactive polls until the stream output reports inactive.
func (c *WSClient) waitForInactive(ctx context.Context) error {
	deadline := time.Now().Add(c.opts.StopWaitTimeout)
	for time.Now().Before(deadline) {
		active, err := c.streamActive(ctx)
		if err != nil {
			return err
		}
		if !active {
			return nil
		}
		if err := sleepCtx(ctx, c.opts.PollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("stream output still active after %s", c.opts.StopWaitTimeout)
}

// StartStream asks OBS to start the stream output.
func (c *WSClient) StartStream(ctx context.Context) error {
	return c.withConn(ctx, "start stream", func(t Transport) error {
		return t.StartStream(ctx)
	})
}

// StopStream asks OBS to stop the stream output.
func (c *WSClient) StopStream(ctx context.Context) error {
	return c.withConn(ctx, "stop stream", func(t Transport) error {
		return t.StopStream(ctx)
	})
}

// WaitForActive polls the output status until it reports active or
// timeout elapses.
func (c *WSClient) WaitForActive(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		active, err := c.streamActive(ctx)
		if err != nil {
			return false, err
		}
		if active {
			return true, nil
		}
		if err := sleepCtx(ctx, c.opts.PollInterval); err != nil {
			return false, err
		}
	}
	return false, nil
}

// CurrentScene returns the current program scene name.
func (c *WSClient) CurrentScene(ctx context.Context) (string, error) {
	var scene string
	err := c.withConn(ctx, "get current scene", func(t Transport) error {
		var err error
		scene, err = t.CurrentProgramScene(ctx)
		return err
	})
	return scene, err
}

// RefreshSource reloads one input by kind.
func (c *WSClient) RefreshSource(ctx context.Context, name string) error {
	var settings map[string]any
	var kind string
	err := c.withConn(ctx, "get input settings", func(t Transport) error {
		var err error
		settings, kind, err = t.InputSettings(ctx, name)
		return err
	})
	if err != nil {
		return err
	}

	switch {
	case kind == KindBrowserSource:
		err = c.withConn(ctx, "refresh browser source", func(t Transport) error {
			return t.PressInputPropertiesButton(ctx, name, refreshButtonProperty)
		})
	case settings[SettingLocalFile] != nil:
		reapply := map[string]any{SettingLocalFile: settings[SettingLocalFile]}
		err = c.withConn(ctx, "reload media source", func(t Transport) error {
			return t.SetInputSettings(ctx, name, reapply, true)
		})
	default:
		err = c.withConn(ctx, "reapply input settings", func(t Transport) error {
			return t.SetInputSettings(ctx, name, settings, true)
		})
	}
	if err != nil {
		return err
	}

	c.logger.Debugw("refreshed source", "source", name, "kind", kind)
	return nil
}

// maskKey hides all but the last four characters of a stream key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
