package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/pitchscore/internal/output"
)

// outputTarget is where a command's rendered report goes: stdout, an exact
// file (--out) or a generated file name inside a directory (--out-dir).
type outputTarget struct {
	Format output.Format
	Path   string
	Dir    string
}

var errOutConflict = errors.New("--out and --out-dir are mutually exclusive")

var unsafeStemChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// fileStem turns a project name into a safe file name stem.
func fileStem(name string) string {
	stem := unsafeStemChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	stem = strings.Trim(stem, "-.")
	if stem == "" {
		return "pitch"
	}
	return stem
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

func resolveOutputTarget(cmd *cobra.Command) (outputTarget, error) {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return outputTarget{}, err
	}
	path, _ := cmd.Flags().GetString("out")
	dir, _ := cmd.Flags().GetString("out-dir")
	target := outputTarget{Format: format, Path: strings.TrimSpace(path), Dir: strings.TrimSpace(dir)}
	if target.Path != "" && target.Dir != "" {
		return outputTarget{}, errOutConflict
	}
	return target, nil
}

func (t outputTarget) extension() string {
	switch t.Format {
	case output.FormatJSON:
		return "json"
	case output.FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

// destination returns the file to write for stem, or "" for stdout.
func (t outputTarget) destination(stem string) string {
	switch {
	case t.Dir != "":
		return filepath.Join(t.Dir, stem+"."+t.extension())
	case t.Path == "-":
		return ""
	default:
		return t.Path
	}
}

// emit writes rendered to stdout or to the resolved file and returns the
// file path, or "-" for stdout.
func (t outputTarget) emit(stdout io.Writer, stem, rendered string) (string, error) {
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	dest := t.destination(stem)
	if dest == "" {
		_, err := io.WriteString(stdout, rendered)
		return "-", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(dest, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}
