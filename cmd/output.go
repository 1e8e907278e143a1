package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/KaramelBytes/effluent-cli/internal/narrative"
	"github.com/KaramelBytes/effluent-cli/internal/utils"
)

var (
	okColor   = color.New(color.FgGreen).SprintFunc()
	warnColor = color.New(color.FgYellow).SprintFunc()
	failColor = color.New(color.FgRed).SprintFunc()
)

func okMark() string   { return okColor("✓") }
func warnMark() string { return warnColor("⚠") }
func failMark() string { return failColor("✗") }

type outputOptions struct {
	JSON         bool
	Quiet        bool
	Dataset      string
	Model        string
	Provider     string
	OutputPath   string
	OutputFormat string
	Writer       io.Writer
}

type narrativeJSON struct {
	Dataset  string `json:"dataset"`
	Kind     string `json:"kind"`
	Column   string `json:"column,omitempty"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Ok       bool   `json:"ok"`
	Content  string `json:"content"`
}

// writeNarrative prints a narrative response; a failed response prints its
// error line in place of the text and is not an error for the command.
func writeNarrative(resp narrative.Response, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	content := resp.Display()
	payload := narrativeJSON{
		Dataset:  opts.Dataset,
		Kind:     resp.Kind.String(),
		Column:   resp.Column,
		Provider: opts.Provider,
		Model:    opts.Model,
		Ok:       resp.Ok(),
		Content:  content,
	}

	switch {
	case opts.JSON:
		b, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Fprintln(w, string(b))
	case !resp.Ok():
		fmt.Fprintln(w, warnMark(), content)
	case opts.Quiet:
		fmt.Fprintln(w, content)
	default:
		fmt.Fprintf(w, "\n=== %s ===\n", resp.Kind.Label(resp.Column))
		fmt.Fprintln(w, content)
	}

	if opts.OutputPath == "" {
		return nil
	}
	var data []byte
	switch opts.OutputFormat {
	case "", "text", "markdown", "md":
		data = []byte(content)
	case "json":
		b, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		data = b
	default:
		return fmt.Errorf("unsupported --format: %s (use text|markdown|json)", opts.OutputFormat)
	}
	if err := utils.SafeWriteFile(opts.OutputPath, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !opts.Quiet {
		fmt.Fprintf(w, "\n%s Saved output to %s\n", okMark(), opts.OutputPath)
	}
	return nil
}
