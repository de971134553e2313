package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daichi0525/aina-YTLoop/internal/config"
	"github.com/daichi0525/aina-YTLoop/internal/logging"
	"github.com/daichi0525/aina-YTLoop/internal/youtube"
)

var (
	cleanupConfigPath string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete leftover upcoming broadcasts and ingest streams",
	Long: `Delete every upcoming broadcast and leftover ingest stream on the
channel. Useful after a crash strands half-provisioned broadcasts.

Streams YouTube refuses to delete while still winding down are skipped.

Example:
  ytloop cleanup
  ytloop cleanup --config /etc/ytloop/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().StringVarP(&cleanupConfigPath, "config", "c", "config.yaml", "Path to the config file")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(cleanupConfigPath)
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

	svc, err := youtube.NewService(ctx, cfg.YouTube.CredentialsFile, cfg.YouTube.TokenFile)
	if err != nil {
		return err
	}

	provisioner := youtube.NewProvisioner(youtube.ProvisionerOptions{
		API:    svc,
		Config: cfg.YouTube,
		Logger: logger,
	})

	deleted, err := provisioner.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("cleanup incomplete: %w", err)
	}

	fmt.Printf("Deleted %d leftover resources.\n", deleted)
	return nil
}
