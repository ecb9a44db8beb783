package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/analyzer"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/config"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/export"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/ingest"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

type analyzeOptions struct {
	thresholdsFile string
	overrides      models.Thresholds
	changed        map[string]bool
	report         string
	bulk           string
	jsonOutput     bool
	lenient        bool
}

// NewAnalyzeCmd creates the 'analyze' command, which classifies a report
// offline and optionally writes the workbook and bulk negation file.
func NewAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions
	def := models.DefaultThresholds()

	cmd := &cobra.Command{
		Use:   "analyze <report.csv|report.xlsx>",
		Short: "Classify a Search Term Report into the four performance categories",
		Long: `Read a Sponsored Products Search Term Report, normalize it and sort
search terms into Wasted Adspend, Inefficient Adspend, Scaling Opportunity
and Harvesting Opportunity. A term can land in several categories.

Threshold flags override the thresholds file, which overrides the built-in
defaults.`,
		Example: `  # Print the summary dashboard
  stractl analyze str.csv

  # Stricter wasted-spend rule, write both exports
  stractl analyze str.xlsx --click-threshold 20 --report report.xlsx --bulk negatives.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.changed = map[string]bool{}
			for _, f := range []string{"click-threshold", "acos-threshold", "cvr-threshold", "low-click-threshold", "order-threshold"} {
				opts.changed[f] = cmd.Flags().Changed(f)
			}
			return runAnalyze(cmd.Context(), args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.thresholdsFile, "thresholds-file", "", "YAML file with default thresholds")
	cmd.Flags().IntVar(&opts.overrides.ClickThreshold, "click-threshold", def.ClickThreshold, "Minimum clicks for Wasted Adspend")
	cmd.Flags().Float64Var(&opts.overrides.ACOSThreshold, "acos-threshold", def.ACOSThreshold, "Minimum ACOS (fraction) for Inefficient Adspend")
	cmd.Flags().Float64Var(&opts.overrides.CVRThreshold, "cvr-threshold", def.CVRThreshold, "Minimum conversion rate (fraction) for Scaling Opportunity")
	cmd.Flags().IntVar(&opts.overrides.LowClickThreshold, "low-click-threshold", def.LowClickThreshold, "Maximum clicks for Scaling Opportunity")
	cmd.Flags().IntVar(&opts.overrides.OrderThreshold, "order-threshold", def.OrderThreshold, "Orders a term must exceed for Harvesting Opportunity")
	cmd.Flags().StringVar(&opts.report, "report", "", "Write the Excel report to this path")
	cmd.Flags().StringVar(&opts.bulk, "bulk", "", "Write the bulk negation CSV to this path")
	cmd.Flags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output the summary as JSON")
	cmd.Flags().BoolVar(&opts.lenient, "skip-bad-rows", false, "Exclude rows with unparseable percentages instead of failing")

	return cmd
}

func runAnalyze(ctx context.Context, path string, opts analyzeOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	th, err := thresholdsFor(opts)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	policy := ingest.FailFast
	if opts.lenient {
		policy = ingest.Collect
	}
	pipe := analyzer.NewPipeline(cliLogger(), nil, policy, runtime.NumCPU())
	res, err := pipe.Run(ctx, filepath.Base(path), f, th)
	if err != nil {
		return err
	}

	if opts.report != "" {
		if err := writeFile(opts.report, func(w io.Writer) error {
			return export.WriteWorkbook(w, res.Summary, res.Results)
		}); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if opts.bulk != "" {
		if err := writeFile(opts.bulk, func(w io.Writer) error {
			_, err := export.WriteBulkCSV(w, res.Results.Rows(models.WastedAdspend))
			return err
		}); err != nil {
			return fmt.Errorf("write bulk file: %w", err)
		}
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"rows":       len(res.Table.Rows),
			"rejected":   len(res.Table.Rejected),
			"thresholds": th,
			"summary":    res.Summary,
		})
	}

	fmt.Fprintf(out, "%d rows analyzed", len(res.Table.Rows))
	if n := len(res.Table.Rejected); n > 0 {
		fmt.Fprintf(out, ", %d skipped", n)
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTERMS\tCLICKS\tSPEND\tSALES\tORDERS\tAVG ACOS\tAVG CVR")
	for _, s := range res.Summary {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.2f\t%d\t%.2f%%\t%.2f%%\n",
			s.Category, s.SearchTerms, s.TotalClicks, s.TotalSpend, s.TotalSales, s.TotalOrders, s.AvgACOS*100, s.AvgCVR*100)
	}
	return tw.Flush()
}

// thresholdsFor layers built-in defaults, the thresholds file and the
// flags that were set explicitly.
func thresholdsFor(opts analyzeOptions) (models.Thresholds, error) {
	th, err := config.LoadThresholds(opts.thresholdsFile)
	if err != nil {
		return th, err
	}
	if opts.changed["click-threshold"] {
		th.ClickThreshold = opts.overrides.ClickThreshold
	}
	if opts.changed["acos-threshold"] {
		th.ACOSThreshold = opts.overrides.ACOSThreshold
	}
	if opts.changed["cvr-threshold"] {
		th.CVRThreshold = opts.overrides.CVRThreshold
	}
	if opts.changed["low-click-threshold"] {
		th.LowClickThreshold = opts.overrides.LowClickThreshold
	}
	if opts.changed["order-threshold"] {
		th.OrderThreshold = opts.overrides.OrderThreshold
	}
	return th, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cliLogger() *slog.Logger {
	lvl := slog.LevelWarn
	if os.Getenv("LOG_LEVEL") == "debug" {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
