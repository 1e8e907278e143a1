package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/effluent-cli/internal/chart"
	"github.com/KaramelBytes/effluent-cli/internal/utils"
)

var (
	plotLoad     loadFlags
	plotColumn   string
	plotOutput   string
	plotWidth    int
	plotHeight   int
	plotOutlierK float64
	plotNoBand   bool
)

var plotCmd = &cobra.Command{
	Use:   "plot <file>",
	Short: "Plot one numeric column over its row index as PNG, with the anomaly band",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := plotLoad.load(args[0])
		if err != nil {
			return err
		}
		name := plotColumn
		if name == "" {
			num := ds.Numeric()
			if len(num) == 0 {
				return fmt.Errorf("no numeric columns in %s", ds.Name)
			}
			name = num[0].Name
		}
		col, err := ds.Lookup(name)
		if err != nil {
			return err
		}
		png, err := chart.LinePNG(col, chart.Options{
			Width:     plotWidth,
			Height:    plotHeight,
			BandWidth: bandWidth(plotOutlierK),
			HideBand:  plotNoBand,
		})
		if err != nil {
			return err
		}
		out := plotOutput
		if out == "" {
			out = safeFileName(name) + ".png"
		}
		if err := utils.SafeWriteFile(out, png); err != nil {
			return fmt.Errorf("write plot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote plot of %s to %s\n", okMark(), name, out)
		return nil
	},
}

func safeFileName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "_")
	if s == "" {
		s = "plot"
	}
	return filepath.Base(s)
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotLoad.bind(plotCmd)
	plotCmd.Flags().StringVarP(&plotColumn, "column", "c", "", "column to plot (default first numeric column)")
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "", "PNG path (default <column>.png)")
	plotCmd.Flags().IntVar(&plotWidth, "width", 900, "image width in pixels")
	plotCmd.Flags().IntVar(&plotHeight, "height", 360, "image height in pixels")
	plotCmd.Flags().Float64Var(&plotOutlierK, "outlier-k", 0, "band width in standard deviations (default from config, 2)")
	plotCmd.Flags().BoolVar(&plotNoBand, "no-band", false, "omit the mean ± kσ band and anomaly markers")
}
