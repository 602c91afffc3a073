package cmd

import (
	"github.com/spf13/cobra"

	"github.com/namelens/pitchscore/internal/observability"
	"github.com/namelens/pitchscore/internal/output"
	"github.com/namelens/pitchscore/internal/server/handlers"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent analyses",
	Long: `Show recent analyses from the history store, newest first.

By default this lists analyses recorded by the score command. Use --key
to view the analyses saved under an HTTP client's history key, or --all for
every owner.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		target, err := resolveOutputTarget(cmd)
		if err != nil {
			return err
		}

		identity, _ := cmd.Flags().GetString("key")
		all, _ := cmd.Flags().GetBool("all")
		limit, _ := cmd.Flags().GetInt("limit")
		if all {
			identity = ""
		} else if identity == "" {
			identity = cliIdentity
		}

		cfg, err := loadConfig(ctx, nil)
		if err != nil {
			return err
		}
		db, err := openStore(ctx, cfg, observability.CLILogger)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		analyses, err := db.ListAnalyses(ctx, identity, limit)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(target.Format).FormatHistory(analyses)
		if err != nil {
			return err
		}
		_, err = target.emit(cmd.OutOrStdout(), "history", rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("key", "", "history key to list, as returned in "+handlers.HistoryKeyHeader+" (default: analyses from the score command)")
	historyCmd.Flags().Bool("all", false, "list analyses for every owner")
	historyCmd.Flags().Int("limit", 0, "maximum analyses to show (default: retention limit)")
	historyCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	historyCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	historyCmd.Flags().String("out-dir", "", "Write output to a directory")
}
