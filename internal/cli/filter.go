package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/analyzer"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/config"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/ingest"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/nlp"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/utils"
)

type filterOptions struct {
	prompt         string
	scope          string
	provider       string
	model          string
	thresholdsFile string
	retries        int
	timeout        time.Duration
	jsonOutput     bool
}

// NewFilterCmd creates the 'filter' command, which asks a language model
// to turn a plain-English request into a validated filter over a report.
func NewFilterCmd() *cobra.Command {
	var opts filterOptions

	cmd := &cobra.Command{
		Use:   "filter <report.csv|report.xlsx>",
		Short: "Filter report rows with a plain-English request",
		Long: `Translate a request such as "broad terms with more than 50 clicks and no
orders" into a structured filter over whitelisted columns, then apply it.

The model's answer is validated before anything is evaluated; a request
that cannot be expressed with the allowed columns and operators fails
without touching the data. Credentials come from GEMINI_API_KEY or
OPENAI_API_KEY.`,
		Example: `  stractl filter str.csv --prompt "spend over 100 and acos above 50%"

  # Only look inside one category, retry slow model calls twice
  stractl filter str.csv --scope wasted_adspend --prompt "campaign contains brand" --retries 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if opts.provider == "" {
				opts.provider = cfg.LLMProvider
			}
			cfg.LLMProvider = opts.provider
			collab, err := collaboratorFor(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return runFilter(cmd.Context(), args[0], opts, collab, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "Plain-English filter request (required)")
	cmd.Flags().StringVar(&opts.scope, "scope", nlp.ScopeAll, "Rows to filter: all, or a category name or slug")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Language model provider: gemini or openai (default $LLM_PROVIDER)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model name override")
	cmd.Flags().StringVar(&opts.thresholdsFile, "thresholds-file", "", "YAML file with thresholds used for --scope")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "Retries on model timeouts or failures")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 20*time.Second, "Time allowed for each model call")
	cmd.Flags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output the filter and matches as JSON")
	cmd.MarkFlagRequired("prompt")

	return cmd
}

func collaboratorFor(ctx context.Context, cfg config.Config) (nlp.Collaborator, error) {
	switch cfg.LLMProvider {
	case "openai":
		return nlp.NewOpenAICollaborator(nlp.NewHTTPClient(cfg.HTTPTimeout), cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMModel), nil
	case "gemini":
		return nlp.NewGeminiCollaborator(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	}
	return nil, fmt.Errorf("unknown provider %q (use gemini or openai)", cfg.LLMProvider)
}

// retryable reports whether another attempt could succeed. Validation
// failures are deterministic for a given answer and are not retried.
func retryable(err error) bool {
	var te *nlp.TranslationError
	if !errors.As(err, &te) {
		return false
	}
	return te.Kind == nlp.ErrKindTimeout || te.Kind == nlp.ErrKindCollaborator
}

func runFilter(ctx context.Context, path string, opts filterOptions, collab nlp.Collaborator, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	th, err := config.LoadThresholds(opts.thresholdsFile)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	log := cliLogger()
	res, err := analyzer.NewPipeline(log, nil, ingest.FailFast, runtime.NumCPU()).Run(ctx, filepath.Base(path), f, th)
	if err != nil {
		return err
	}
	rows, err := nlp.ScopeRows(opts.scope, res.Table.Rows, res.Results)
	if err != nil {
		return err
	}

	tr := nlp.NewTranslator(collab, opts.timeout, log)
	req := nlp.Request{Prompt: opts.prompt, Scope: opts.scope, Model: opts.model}
	var result nlp.Result
	err = utils.NewBackoff(500*time.Millisecond, opts.retries).Do(ctx, retryable, func(i int) error {
		if i > 0 {
			log.Warn("retrying filter translation", "attempt", i+1)
		}
		var err error
		result, err = tr.Run(ctx, req, rows)
		return err
	})
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fb, _ := json.Marshal(result.Filter)
	fmt.Fprintf(out, "filter: %s\n%d of %d rows matched\n", fb, result.MatchedCount, len(rows))
	if len(result.Preview) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEARCH TERM\tCAMPAIGN\tMATCH\tCLICKS\tSPEND\tORDERS\tACOS")
	for _, r := range result.Preview {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%d\t%.2f%%\n",
			r.CustomerSearchTerm, r.CampaignName, r.MatchType, r.Clicks, r.Spend, r.Orders, r.ACOS*100)
	}
	return tw.Flush()
}
