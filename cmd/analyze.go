package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/dataset"
	"github.com/KaramelBytes/effluent-cli/internal/utils"
)

// loadFlags select how an input file is parsed.
type loadFlags struct {
	Delimiter string
	Decimal   string
	Thousands string
	Sheet     string
}

func (f *loadFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.Delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	fl.StringVar(&f.Decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fl.StringVar(&f.Thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fl.StringVar(&f.Sheet, "sheet", "", "XLSX: sheet name (default first sheet)")
}

func (f loadFlags) options() (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	switch f.Delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.Delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(f.Decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.Decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.Thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.Thousands)
	}
	opt.Sheet = f.Sheet
	return opt, nil
}

func (f loadFlags) load(path string) (*dataset.Dataset, error) {
	opt, err := f.options()
	if err != nil {
		return nil, err
	}
	return dataset.LoadFile(path, opt)
}

// bandWidth returns the outlier band width from the flag or config.
func bandWidth(flag float64) float64 {
	if flag > 0 {
		return flag
	}
	if cfg != nil && cfg.OutlierK > 0 {
		return cfg.OutlierK
	}
	return analysis.DefaultBandWidth
}

var (
	anaLoad       loadFlags
	anaOutputPath string
	anaSampleRows int
	anaTopPairs   int
	anaOutlierK   float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Summarise a dataset: preview, statistics, anomalies and correlations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := anaLoad.load(args[0])
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		opt.SampleRows = anaSampleRows
		opt.TopPairs = anaTopPairs
		opt.BandWidth = bandWidth(anaOutlierK)
		rep := analysis.Analyze(ds, opt)
		md := rep.Markdown()

		out := cmd.OutOrStdout()
		for _, w := range rep.Warnings {
			fmt.Fprintln(cmd.ErrOrStderr(), warnMark(), w)
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "%s Wrote analysis to %s\n", okMark(), anaOutputPath)
			return nil
		}
		fmt.Fprintln(out, md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaLoad.bind(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of preview rows to include")
	analyzeCmd.Flags().IntVar(&anaTopPairs, "top-pairs", 10, "number of strongest correlation pairs to list (0 = all)")
	analyzeCmd.Flags().Float64Var(&anaOutlierK, "outlier-k", 0, "outlier band width in standard deviations (default from config, 2)")
}

