package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/effluent-cli/internal/analysis"
	"github.com/KaramelBytes/effluent-cli/internal/dataset"
	"github.com/KaramelBytes/effluent-cli/internal/narrative"
)

var (
	askLoad     loadFlags
	askLLM      llmFlags
	askQuestion string
	askColumn   string
	askOutlierK float64
	askJSON     bool
	askQuiet    bool
	askOutput   string
	askFormat   string
)

var askCmd = &cobra.Command{
	Use:   "ask <summary|question|correlation|advice|anomalies> <file>",
	Short: "Ask the AI assistant for a narrative about a dataset",
	Long: `Ask sends one request per narrative to the configured provider.
"advice" without --column asks once per numeric column, in column order.
A failed request prints an error line in place of the narrative.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := narrative.ParseKind(args[0])
		if err != nil {
			return err
		}
		ds, err := askLoad.load(args[1])
		if err != nil {
			return err
		}
		payloads, err := askPayloads(kind, ds)
		if err != nil {
			if errors.Is(err, analysis.ErrInsufficientColumns) || errors.Is(err, analysis.ErrNonNumericColumn) {
				fmt.Fprintln(cmd.OutOrStdout(), warnMark(), err)
				return nil
			}
			return err
		}
		if len(payloads) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), warnMark(), "Geen anomalieën gevonden.")
			return nil
		}

		req, provider, model, err := newRequestor(cfg, askLLM)
		if err != nil {
			return err
		}
		opts := outputOptions{
			JSON:         askJSON,
			Quiet:        askQuiet,
			Dataset:      ds.Name,
			Model:        model,
			Provider:     provider,
			OutputFormat: askFormat,
			Writer:       cmd.OutOrStdout(),
		}
		if len(payloads) == 1 {
			opts.OutputPath = askOutput
		}
		for _, p := range payloads {
			resp := req.Request(cmd.Context(), kind, p)
			if err := writeNarrative(resp, opts); err != nil {
				return err
			}
		}
		return nil
	},
}

func askPayloads(kind narrative.Kind, ds *dataset.Dataset) ([]narrative.Payload, error) {
	switch kind {
	case narrative.KindSummary:
		return []narrative.Payload{narrative.SummaryPayload(ds, analysis.Describe(ds))}, nil
	case narrative.KindQuestion:
		q := strings.TrimSpace(askQuestion)
		if q == "" {
			return nil, fmt.Errorf("--question is required for ask question")
		}
		return []narrative.Payload{narrative.QuestionPayload(ds, analysis.Describe(ds), q)}, nil
	case narrative.KindCorrelation:
		m, err := analysis.ComputeCorrelation(ds)
		if err != nil {
			return nil, err
		}
		return []narrative.Payload{narrative.CorrelationPayload(ds, m)}, nil
	case narrative.KindColumnAdvice:
		if askColumn != "" {
			col, err := ds.Lookup(askColumn)
			if err != nil {
				return nil, err
			}
			if err := analysis.RequireNumeric(col); err != nil {
				return nil, err
			}
			return []narrative.Payload{narrative.AdvicePayload(ds, analysis.DescribeColumn(col))}, nil
		}
		var out []narrative.Payload
		for _, cs := range analysis.Describe(ds) {
			out = append(out, narrative.AdvicePayload(ds, cs))
		}
		return out, nil
	case narrative.KindAnomaly:
		k := bandWidth(askOutlierK)
		anoms := analysis.DetectAllK(ds, k)
		if len(anoms) == 0 {
			return nil, nil
		}
		return []narrative.Payload{narrative.AnomalyPayload(ds, anoms, k)}, nil
	}
	return nil, fmt.Errorf("unsupported narrative kind: %s", kind)
}

func init() {
	rootCmd.AddCommand(askCmd)
	askLoad.bind(askCmd)
	askLLM.bind(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question about the data (ask question)")
	askCmd.Flags().StringVarP(&askColumn, "column", "c", "", "column to advise on (ask advice; default every numeric column)")
	askCmd.Flags().Float64Var(&askOutlierK, "outlier-k", 0, "outlier band width in standard deviations (ask anomalies)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the response as JSON")
	askCmd.Flags().BoolVar(&askQuiet, "quiet", false, "print only the narrative text")
	askCmd.Flags().StringVarP(&askOutput, "output", "o", "", "also write the narrative to this file (single narrative only)")
	askCmd.Flags().StringVar(&askFormat, "format", "", "output file format: text|markdown|json")
}
