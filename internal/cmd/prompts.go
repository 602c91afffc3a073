package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/namelens/pitchscore/internal/ailink/prompt"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect scoring prompts",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context(), nil)
		if err != nil {
			return err
		}

		registry, err := prompt.RegistryWithOverrides(cfg.AILink.PromptsDir)
		if err != nil {
			return err
		}

		prompts := registry.List()
		if len(prompts) == 0 {
			fmt.Println("No prompts found.")
			return nil
		}

		writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(writer, "SLUG\tVERSION\tFORMAT\tSOURCE") // nolint:errcheck // tabwriter buffers; errors surface at Flush
		for _, p := range prompts {
			if p == nil {
				continue
			}
			format := p.Config.ResponseFormat
			if format == "" {
				format = "text"
			}
			_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", p.Config.Slug, p.Config.Version, format, p.Source) // nolint:errcheck // tabwriter buffers
		}
		return writer.Flush()
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Print a prompt's templates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context(), nil)
		if err != nil {
			return err
		}
		registry, err := prompt.RegistryWithOverrides(cfg.AILink.PromptsDir)
		if err != nil {
			return err
		}
		p, err := registry.Get(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "# %s (%s)\n\n", p.Config.Slug, p.Source)
		_, _ = fmt.Fprintf(out, "required: %v\n\n", p.Config.Input.RequiredVariables)
		_, _ = fmt.Fprintf(out, "## system\n\n%s\n\n## user\n\n%s\n", p.Config.SystemTemplate, p.Config.UserTemplate)
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	rootCmd.AddCommand(promptsCmd)
}
