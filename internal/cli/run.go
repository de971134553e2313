package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/daichi0525/aina-YTLoop/internal/config"
	"github.com/daichi0525/aina-YTLoop/internal/logging"
	"github.com/daichi0525/aina-YTLoop/internal/loop"
	"github.com/daichi0525/aina-YTLoop/internal/obs"
	"github.com/daichi0525/aina-YTLoop/internal/youtube"
)

var (
	runConfigPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the broadcast loop until a bound is hit",
	Long: `Run the broadcast loop. Each iteration creates a YouTube broadcast and
ingest stream, points OBS at the new key, streams for the configured
duration, then stops the output and repeats.

The loop ends when the iteration count, total duration, or expiration
bound from the config file is reached, or on interrupt.

Example:
  ytloop run
  ytloop run --config /etc/ytloop/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "config.yaml", "Path to the config file")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Directory: cfg.Logging.Directory,
		ToConsole: cfg.Logging.ToConsole,
		ToFile:    cfg.Logging.ToFile,
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	for _, warning := range cfg.Warnings {
		logger.Warnw(warning)
	}

	svc, err := youtube.NewService(ctx, cfg.YouTube.CredentialsFile, cfg.YouTube.TokenFile)
	if err != nil {
		return err
	}

	provisioner := youtube.NewProvisioner(youtube.ProvisionerOptions{
		API:    svc,
		Config: cfg.YouTube,
		Logger: logger,
	})

	control := obs.NewWSClient(obs.Options{
		Host:             cfg.OBS.Host,
		Port:             cfg.OBS.Port,
		Password:         cfg.OBS.Password,
		AppPath:          cfg.OBS.AppPath,
		ConnectTimeout:   seconds(cfg.OBS.ConnectTimeoutSeconds),
		LaunchWait:       seconds(cfg.OBS.LaunchWaitSeconds),
		ApplyMaxAttempts: cfg.OBS.ApplySettingsMaxAttempts,
		ApplyRetryDelay:  seconds(cfg.OBS.ApplySettingsRetryDelaySeconds),
		StopWaitTimeout:  seconds(cfg.OBS.StopWaitTimeoutSeconds),
		PollInterval:     seconds(cfg.OBS.StatusPollIntervalSeconds),
		Logger:           logger,
	})

	// A dead OBS at startup is fatal; drops mid-run reconnect instead.
	if err := control.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to obs: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctl := loop.New(loop.Options{
		Provisioner:      provisioner,
		Control:          control,
		Logger:           logger,
		MaxIterations:    cfg.Loop.Count,
		MaxDurationHours: cfg.Loop.DurationHours,
		ExpiresAt:        cfg.Loop.ExpiresAt,
		RetryBackoff:     seconds(cfg.Loop.RetryBackoffSeconds),
		IterationDelay:   seconds(cfg.Loop.IterationDelaySeconds),
		HoldDuration:     seconds(cfg.Stream.DurationSeconds),
		PollInterval:     seconds(cfg.OBS.StatusPollIntervalSeconds),
		StartTimeout:     seconds(cfg.OBS.StartTimeoutSeconds),
		RTMPServer:       cfg.YouTube.RTMPURL,
		ServiceName:      cfg.YouTube.ServiceName,
		RefreshEnabled:   cfg.OBS.SourceRefresh.Enabled,
		RefreshInterval:  seconds(cfg.OBS.SourceRefresh.IntervalSeconds),
		RefreshSources:   cfg.OBS.SourceRefresh.Sources,
	})

	result := ctl.Run(ctx)
	logger.Infow("loop finished",
		"reason", result.Reason.String(),
		"iterations", result.Iterations,
	)
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
