package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/namelens/pitchscore/internal/config"
	"github.com/namelens/pitchscore/internal/output"
	"github.com/namelens/pitchscore/internal/ratelimit"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect rate limit decision counters",
	Long: `Inspect the allowed/denied counters the server writes to Redis when
rate_limit.stats.enabled is set. The limiter itself keeps no persistent state.`,
}

var rateLimitStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show allowed and denied totals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := tableOrJSON(cmd)
		if err != nil {
			return err
		}

		stats, closeFn, err := openRedisStats(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		snap, err := stats.Snapshot(ctx)
		if err != nil {
			return err
		}
		return writeRateLimitStats(format, cmd.OutOrStdout(), snap)
	},
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete stored rate limit counters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := tableOrJSON(cmd)
		if err != nil {
			return err
		}
		yes, _ := cmd.Flags().GetBool("yes")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if !yes && !dryRun {
			return errors.New("reset requires --yes (or use --dry-run)")
		}

		stats, closeFn, err := openRedisStats(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		count, err := stats.Reset(ctx, dryRun)
		if err != nil {
			return err
		}
		return writeRateLimitResetResult(format, cmd.OutOrStdout(), stats.Prefix(), count, dryRun)
	},
}

func tableOrJSON(cmd *cobra.Command) (output.Format, error) {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return "", err
	}
	if format != output.FormatJSON && format != output.FormatTable {
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
	return format, nil
}

func openRedisStats(ctx context.Context) (*ratelimit.RedisStats, func(), error) {
	cfg, err := loadConfig(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return redisStatsFromConfig(cfg.RateLimit.Stats)
}

func redisStatsFromConfig(cfg config.StatsConfig) (*ratelimit.RedisStats, func(), error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, nil, errors.New("rate_limit.stats.redis_addr is not set")
	}
	client := newRedisClient(cfg)
	return newRedisStats(client, cfg), func() { _ = client.Close() }, nil
}

func writeRateLimitStats(format output.Format, w io.Writer, snap *ratelimit.StatsSnapshot) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	lines := []string{
		"Rate Limit Stats (" + snap.Prefix + ")",
		"",
		fmt.Sprintf("total: allowed=%d denied=%d", snap.Total.Allowed, snap.Total.Denied),
	}
	routes := snap.Routes()
	if len(routes) == 0 {
		lines = append(lines, "(no route counters)")
	}
	for _, route := range routes {
		c := snap.ByRoute[route]
		lines = append(lines, fmt.Sprintf("%s: allowed=%d denied=%d", route, c.Allowed, c.Denied))
	}

	_, err := fmt.Fprint(w, ascii.DrawBox(strings.Join(lines, "\n"), 0))
	return err
}

func writeRateLimitResetResult(format output.Format, w io.Writer, prefix string, count int64, dryRun bool) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(map[string]any{
			"prefix":  prefix,
			"keys":    count,
			"dry_run": dryRun,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if dryRun {
		_, err := fmt.Fprintf(w, "Would delete %d key(s) under %s\n", count, prefix)
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted %d key(s) under %s\n", count, prefix)
	return err
}

func init() {
	for _, c := range []*cobra.Command{rateLimitStatsCmd, rateLimitResetCmd} {
		c.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	}
	rateLimitResetCmd.Flags().Bool("yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().Bool("dry-run", false, "Show how many keys would be deleted")

	rateLimitCmd.AddCommand(rateLimitStatsCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
