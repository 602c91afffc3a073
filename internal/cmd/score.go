package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/pitchscore/internal/appid"
	"github.com/namelens/pitchscore/internal/config"
	"github.com/namelens/pitchscore/internal/observability"
	"github.com/namelens/pitchscore/internal/output"
	"github.com/namelens/pitchscore/internal/scoring"
	"github.com/namelens/pitchscore/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a project pitch from the command line",
	Long: `Score a project pitch on six dimensions and print written feedback.

Examples:
  pitchscore score --name "Pitchscore" --description "Rates project pitches"
  pitchscore score --name "Pitchscore" --description-file pitch.md --output-format json
  cat pitch.md | pitchscore score --name "Pitchscore" --description-file -`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().String("name", "", "project name")
	scoreCmd.Flags().String("description", "", "project description")
	scoreCmd.Flags().String("description-file", "", "read the description from a file (- for stdin)")
	scoreCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
	scoreCmd.Flags().String("out", "", "Write output to a file (default stdout)")
	scoreCmd.Flags().String("out-dir", "", "Write output to a directory")
	scoreCmd.Flags().Duration("timeout", 0, "overall scoring timeout (default from config)")
	scoreCmd.Flags().Bool("no-history", false, "do not record the analysis in history")
}

func readScoreInput(cmd *cobra.Command, stdin io.Reader) (scoring.ProjectInput, error) {
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")
	descriptionFile, _ := cmd.Flags().GetString("description-file")

	if descriptionFile != "" {
		if strings.TrimSpace(description) != "" {
			return scoring.ProjectInput{}, fmt.Errorf("--description and --description-file are mutually exclusive")
		}
		var (
			data []byte
			err  error
		)
		if descriptionFile == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(descriptionFile)
		}
		if err != nil {
			return scoring.ProjectInput{}, fmt.Errorf("read description: %w", err)
		}
		description = string(data)
	}

	input := scoring.ProjectInput{Name: name, Description: description}.Normalize()
	if err := input.Validate(); err != nil {
		return scoring.ProjectInput{}, err
	}
	return input, nil
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	target, err := resolveOutputTarget(cmd)
	if err != nil {
		return err
	}

	input, err := readScoreInput(cmd, cmd.InOrStdin())
	if err != nil {
		return err
	}

	overrides := map[string]any{}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		overrides["scoring.timeout"] = timeout
	}
	cfg, err := loadConfig(ctx, overrides)
	if err != nil {
		return err
	}
	if !cfg.AILink.Configured() {
		return fmt.Errorf("no AI provider configured: set ailink.providers in config or %s", appid.EnvName("AILINK_PROVIDERS_<ID>_CREDENTIALS_0_API_KEY"))
	}

	scorer, _, err := buildScorer(cfg, observability.CLILogger)
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := scorer.Score(ctx, input)
	if err != nil {
		return err
	}
	observability.CLILogger.Debug("Scoring complete",
		zap.String("project", input.Name),
		zap.Duration("duration", time.Since(started)))

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if cfg.Scoring.History.Enabled && !noHistory {
		recordCLIHistory(ctx, cfg, input, result)
	}

	rendered, err := output.NewFormatter(target.Format).FormatResult(input, result)
	if err != nil {
		return err
	}
	_, err = target.emit(cmd.OutOrStdout(), fileStem(input.Name)+".score", rendered)
	return err
}

// recordCLIHistory stores a CLI analysis. Failures are logged and ignored.
func recordCLIHistory(ctx context.Context, cfg *config.Config, input scoring.ProjectInput, result *scoring.Result) {
	db, err := openStore(ctx, cfg, observability.CLILogger)
	if err != nil {
		observability.CLILogger.Warn("History unavailable", zap.Error(err))
		return
	}
	defer func() { _ = db.Close() }()

	if err := db.SaveAnalysis(ctx, cliIdentity, store.NewAnalysis(input, result, time.Now())); err != nil {
		observability.CLILogger.Warn("Failed to record analysis", zap.Error(err))
	}
}
