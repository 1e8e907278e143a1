package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/narrative"
	"github.com/KaramelBytes/effluent-cli/internal/report"
	"github.com/KaramelBytes/effluent-cli/internal/utils"
)

var (
	repLoad      loadFlags
	repLLM       llmFlags
	repOutput    string
	repFont      string
	repMonoFont  string
	repCharts    bool
	repAnomalies bool
	repOutlierK  float64
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Write a PDF report with statistics and per-column AI advice",
	Long: `Report asks the assistant for advice on every numeric column, one request
at a time, and lays the answers out in a PDF together with the statistics
table and the anomaly list. A failed request becomes that column's text.
The body font must be a TrueType file; use --font builtin for the bundled
Go font.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := repLoad.load(args[0])
		if err != nil {
			return err
		}
		req, _, _, err := newRequestor(cfg, repLLM)
		if err != nil {
			return err
		}

		opt := report.Options{
			FontPath:     repFont,
			MonoFontPath: repMonoFont,
			BandWidth:    bandWidth(repOutlierK),
			Charts:       repCharts,
		}
		if opt.FontPath == "" && cfg != nil {
			opt.FontPath = cfg.FontPath
		}
		if opt.MonoFontPath == "" && cfg != nil {
			opt.MonoFontPath = cfg.MonoFontPath
		}
		out := repOutput
		if out == "" && cfg != nil {
			out = cfg.ReportFilename
		}
		if out == "" {
			out = report.DefaultFilename
		}

		var buildOpts []report.BuildOption
		if repAnomalies {
			if anoms := analysis.DetectAllK(ds, opt.BandWidth); len(anoms) > 0 {
				resp := req.Request(cmd.Context(), narrative.KindAnomaly, narrative.AnomalyPayload(ds, anoms, opt.BandWidth))
				if !resp.Ok() {
					fmt.Fprintln(cmd.ErrOrStderr(), warnMark(), resp.Display())
				}
				buildOpts = append(buildOpts, report.WithAnomalyNarrative(resp.Display()))
			}
		}

		asm := report.NewAssembler(opt)
		pdf, err := asm.Build(cmd.Context(), ds, nil, req, buildOpts...)
		if err != nil {
			if errors.Is(err, report.ErrMissingResource) {
				return fmt.Errorf("%w (set font_path or pass --font builtin)", err)
			}
			return err
		}
		if err := utils.SafeWriteFile(out, pdf); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote report to %s (%d bytes)\n", okMark(), out, len(pdf))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	repLoad.bind(reportCmd)
	repLLM.bind(reportCmd)
	reportCmd.Flags().StringVarP(&repOutput, "output", "o", "", "PDF path (default from config: afvalwater_rapport.pdf)")
	reportCmd.Flags().StringVar(&repFont, "font", "", "TrueType body font path, or 'builtin' (default from config)")
	reportCmd.Flags().StringVar(&repMonoFont, "mono-font", "", "TrueType font for the statistics table (default builtin Go Mono)")
	reportCmd.Flags().BoolVar(&repCharts, "charts", false, "embed a plot above each column section")
	reportCmd.Flags().BoolVar(&repAnomalies, "explain-anomalies", false, "include an AI explanation of the anomalies")
	reportCmd.Flags().Float64Var(&repOutlierK, "outlier-k", 0, "outlier band width in standard deviations (default from config, 2)")
}
