package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brainboard/brainboard/internal/core/store"
	"github.com/brainboard/brainboard/internal/output"
)

var (
	rateLimitAll    bool
	rateLimitKey    string
	rateLimitPrefix string
	rateLimitYes    bool
	rateLimitDryRun bool
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Manage persisted rate limit state",
	Long: `Manage persisted rate limit state. Windows are keyed by API host and
live in the configured store (libsql or redis).`,
}

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rate limit windows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := store.RateLimitQuery{
			All:    rateLimitAll,
			Key:    strings.TrimSpace(rateLimitKey),
			Prefix: strings.TrimSpace(rateLimitPrefix),
		}
		if query.Key == "" && query.Prefix == "" {
			query.All = true
		}

		return withBackend(cmd, func(ctx context.Context, be *backend) error {
			entries, err := be.listRateLimits(ctx, query)
			if err != nil {
				return err
			}
			rows := make([]output.RateLimitRow, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, output.RateLimitRow{Key: entry.Key, State: entry.State})
			}
			return writeOutput(cmd, rows)
		})
	},
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete stored rate limit windows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := store.RateLimitQuery{
			All:    rateLimitAll,
			Key:    strings.TrimSpace(rateLimitKey),
			Prefix: strings.TrimSpace(rateLimitPrefix),
		}
		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !rateLimitYes && !rateLimitDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		return withBackend(cmd, func(ctx context.Context, be *backend) error {
			matched, err := be.listRateLimits(ctx, query)
			if err != nil {
				return err
			}
			if rateLimitDryRun {
				return writeOutput(cmd, output.Message{Text: fmt.Sprintf("Would delete %d rate limit window(s)", len(matched))})
			}

			deleted, err := be.resetRateLimits(ctx, query)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output.Message{Text: fmt.Sprintf("Deleted %d/%d rate limit window(s)", deleted, len(matched))})
		})
	},
}

// withBackend runs fn against the configured store without building a
// session client.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, be *backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	be, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer be.Close() // nolint:errcheck // best-effort cleanup
	return fn(ctx, be)
}

func init() {
	for _, c := range []*cobra.Command{rateLimitListCmd, rateLimitResetCmd} {
		c.Flags().BoolVar(&rateLimitAll, "all", false, "Select every window")
		c.Flags().StringVar(&rateLimitKey, "key", "", "Select one window by API host (exact match)")
		c.Flags().StringVar(&rateLimitPrefix, "prefix", "", "Select windows whose key starts with prefix")
	}
	rateLimitResetCmd.Flags().BoolVar(&rateLimitYes, "yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitDryRun, "dry-run", false, "Show what would be deleted")

	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
