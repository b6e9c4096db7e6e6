// Package cli wires the cobra command tree for the ar binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkyoung/agent-reviewer/internal/domain"
	"github.com/bkyoung/agent-reviewer/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// Reviewer starts a review and streams its progress. *review.Orchestrator
// satisfies it.
type Reviewer interface {
	Start(ctx context.Context, req review.Request) *review.Execution
}

// FileCollector gathers files for review from explicit paths.
type FileCollector interface {
	Collect(paths []string) ([]domain.CodeFile, error)
}

// ChangeCollector gathers files changed since a git base reference.
type ChangeCollector interface {
	ChangedFiles(baseRef string) ([]domain.CodeFile, error)
}

// ReportWriter renders a completed report to the output directory and
// returns the written path.
type ReportWriter interface {
	Write(ctx context.Context, report domain.ReviewReport, outputDir string) (string, error)
}

// KnowledgeIngester loads guidance documents into the knowledge base.
type KnowledgeIngester interface {
	IngestDir(ctx context.Context, root string) (int, error)
}

// HistoryStore reads back persisted reviews.
type HistoryStore interface {
	Load(ctx context.Context, reviewID string) (domain.ReviewReport, error)
	ListRecent(ctx context.Context, limit int) ([]string, error)
	TotalCost(ctx context.Context) (float64, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// ReviewDefaults carries config-derived defaults that CLI flags may
// override.
type ReviewDefaults struct {
	OutputDir           string
	Formats             []string
	BaseRef             string
	Progress            bool
	ConfidenceThreshold float64
	CostLimitUSD        float64
	EnableSecurity      bool
	EnablePerformance   bool
	EnableDocumentation bool
}

// Dependencies captures the collaborators for the CLI. Reviewer is
// required for the review command; the rest enable their commands when
// present.
type Dependencies struct {
	Reviewer  Reviewer
	Collector FileCollector
	Changes   ChangeCollector
	Writers   map[string]ReportWriter
	Knowledge KnowledgeIngester
	History   HistoryStore
	Defaults  ReviewDefaults
	NewID     func() string
	Args      Arguments
	Version   string
}

// NewRootCommand constructs the root cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "ar",
		Short: "Multi-agent LLM code review",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(reviewCommand(deps))
	root.AddCommand(ingestCommand(deps.Knowledge))
	root.AddCommand(historyCommand(deps.History))
	root.AddCommand(showCommand(deps.History))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func reviewCommand(deps Dependencies) *cobra.Command {
	defaults := deps.Defaults

	var baseRef string
	var diff bool
	var outputDir string
	var formats []string
	var confidence float64
	var costLimit float64
	var noSecurity bool
	var noPerformance bool
	var noDocumentation bool
	var postComments bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "review [paths...]",
		Short: "Review files or changed files against a base reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Reviewer == nil {
				return fmt.Errorf("review command is not configured")
			}
			ctx := cmd.Context()

			files, err := collectFiles(deps, args, diff, baseRef)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no reviewable files found")
			}

			reviewID := "review"
			if deps.NewID != nil {
				reviewID = deps.NewID()
			}

			options := map[string]interface{}{
				"enable_security":      defaults.EnableSecurity && !noSecurity,
				"enable_performance":   defaults.EnablePerformance && !noPerformance,
				"enable_documentation": defaults.EnableDocumentation && !noDocumentation,
				"confidence_threshold": confidence,
				"cost_limit_usd":       costLimit,
				"post_comments":        postComments,
			}

			execution := deps.Reviewer.Start(ctx, review.Request{
				ReviewID: reviewID,
				Files:    files,
				Options:  options,
			})

			renderProgress(cmd.ErrOrStderr(), execution, quiet)

			report, err := execution.Wait()
			if err != nil {
				return err
			}

			if err := writeReports(ctx, cmd.OutOrStdout(), deps.Writers, report, outputDir, formats); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), report)

			if report.Status == domain.ReviewStatusBudgetExceeded {
				return fmt.Errorf("review %s stopped: cost limit reached", report.ReviewID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&diff, "diff", false, "Review files changed since the base reference")
	cmd.Flags().StringVar(&baseRef, "base", defaults.BaseRef, "Git base reference for --diff")
	cmd.Flags().StringVarP(&outputDir, "output", "o", defaults.OutputDir, "Directory for report files")
	cmd.Flags().StringSliceVar(&formats, "format", defaults.Formats, "Report formats: json, markdown, sarif")
	cmd.Flags().Float64Var(&confidence, "confidence", defaults.ConfidenceThreshold, "Minimum finding confidence, 0 to 1")
	cmd.Flags().Float64Var(&costLimit, "cost-limit", defaults.CostLimitUSD, "Maximum spend in USD, 0 for unlimited")
	cmd.Flags().BoolVar(&noSecurity, "no-security", false, "Skip the security agent")
	cmd.Flags().BoolVar(&noPerformance, "no-performance", false, "Skip the performance agent")
	cmd.Flags().BoolVar(&noDocumentation, "no-documentation", false, "Skip the documentation agent")
	cmd.Flags().BoolVar(&postComments, "post", false, "Post the consolidated review to the configured pull request")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", !defaults.Progress, "Suppress progress output")

	return cmd
}

func collectFiles(deps Dependencies, paths []string, diff bool, baseRef string) ([]domain.CodeFile, error) {
	if diff {
		if deps.Changes == nil {
			return nil, fmt.Errorf("--diff requires a git repository")
		}
		return deps.Changes.ChangedFiles(baseRef)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths given; pass files or directories, or use --diff")
	}
	if deps.Collector == nil {
		return nil, fmt.Errorf("file collection is not configured")
	}
	return deps.Collector.Collect(paths)
}

func renderProgress(w io.Writer, execution *review.Execution, quiet bool) {
	for ev := range execution.Events {
		if quiet {
			continue
		}
		switch ev.Kind {
		case review.EventStateChanged:
			_, _ = fmt.Fprintf(w, "==> %s\n", ev.State)
		case review.EventAgentResult:
			r := ev.Result
			_, _ = fmt.Fprintf(w, "    %-12s %-40s %s (%d findings)\n",
				r.AgentName, r.FilePath, r.Status, len(r.Findings))
		}
	}
	if dropped := execution.DroppedEvents(); dropped > 0 && !quiet {
		_, _ = fmt.Fprintf(w, "    (%d progress events dropped)\n", dropped)
	}
}

func writeReports(ctx context.Context, w io.Writer, writers map[string]ReportWriter, report domain.ReviewReport, outputDir string, formats []string) error {
	for _, format := range formats {
		writer, ok := writers[format]
		if !ok {
			return fmt.Errorf("unknown report format %q", format)
		}
		path, err := writer.Write(ctx, report, outputDir)
		if err != nil {
			return fmt.Errorf("write %s report: %w", format, err)
		}
		_, _ = fmt.Fprintf(w, "Wrote %s\n", path)
	}
	return nil
}

func printSummary(w io.Writer, report domain.ReviewReport) {
	stats := report.Statistics
	_, _ = fmt.Fprintf(w, "\nReview %s: %s\n", report.ReviewID, report.Status)
	_, _ = fmt.Fprintf(w, "Score %.0f/100, recommendation: %s\n", report.OverallScore, report.Recommendation)
	_, _ = fmt.Fprintf(w, "%d issues across %d files", stats.TotalIssues, stats.FilesReviewed)
	if len(stats.IssuesBySeverity) > 0 {
		_, _ = fmt.Fprintf(w, " (%s)", severityBreakdown(stats.IssuesBySeverity))
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Tokens: %d, cost: $%.4f, cache hit rate: %.0f%%\n",
		stats.TotalTokens, stats.TotalCostUSD, stats.CacheHitRate*100)
	if len(stats.FailedAgents) > 0 {
		_, _ = fmt.Fprintf(w, "Failed agents: %s\n", strings.Join(stats.FailedAgents, ", "))
	}
}

var severityOrder = []string{"critical", "high", "medium", "low", "info"}

func severityBreakdown(bySeverity map[string]int) string {
	parts := make([]string, 0, len(bySeverity))
	for _, severity := range severityOrder {
		if n := bySeverity[severity]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, severity))
		}
	}
	return strings.Join(parts, ", ")
}

func ingestCommand(ingester KnowledgeIngester) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Load guidance documents into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ingester == nil {
				return fmt.Errorf("knowledge base is not configured")
			}
			count, err := ingester.IngestDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d documents\n", count)
			return nil
		},
	}
}

func historyCommand(history HistoryStore) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == nil {
				return fmt.Errorf("review store is not configured")
			}
			ctx := cmd.Context()
			ids, err := history.ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			for _, id := range ids {
				report, err := history.Load(ctx, id)
				if err != nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t(unreadable: %v)\n", id, err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d issues\t$%.4f\t%s\n",
					report.ReviewID, report.Status, report.Statistics.TotalIssues,
					report.Statistics.TotalCostUSD, report.CreatedAt.Format("2006-01-02 15:04"))
			}
			total, err := history.TotalCost(ctx)
			if err == nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Total spend: $%.4f\n", total)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of reviews to list")
	return cmd
}

func showCommand(history HistoryStore) *cobra.Command {
	return &cobra.Command{
		Use:   "show <review-id>",
		Short: "Show a persisted review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == nil {
				return fmt.Errorf("review store is not configured")
			}
			report, err := history.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSummary(out, report)
			issues := append([]domain.Finding(nil), report.Issues...)
			sort.SliceStable(issues, func(i, j int) bool {
				return domain.SeverityRank(issues[i].Severity) > domain.SeverityRank(issues[j].Severity)
			})
			for _, issue := range issues {
				_, _ = fmt.Fprintf(out, "\n[%s] %s\n  %s:%d\n", issue.Severity, issue.Title, issue.FilePath, issue.LineStart)
			}
			return nil
		},
	}
}
