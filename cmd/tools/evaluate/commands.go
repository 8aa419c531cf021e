package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/convo-eval/internal/analysis/recovery"
	"github.com/zhouzirui/convo-eval/internal/analysis/sentiment"
	"github.com/zhouzirui/convo-eval/internal/analysis/similarity"
	"github.com/zhouzirui/convo-eval/internal/config"
	"github.com/zhouzirui/convo-eval/internal/model/transcript"
	"github.com/zhouzirui/convo-eval/internal/observability"
	"github.com/zhouzirui/convo-eval/internal/service/evaluation"
	"github.com/zhouzirui/convo-eval/internal/service/polarity"
)

type cliState struct {
	cfg      *config.Config
	window   time.Duration
	order    int
	backend  string
	logLevel string
	asJSON   bool
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:   "evaluate",
		Short: "Score customer-service transcripts",
		Long: `evaluate reads a transcript export (JSON) and prints conversation quality metrics.

Examples:
  # Recovery rate with a two minute response budget
  evaluate recovery convo.json --window 2m

  # Average pairwise bigram similarity of agent replies
  evaluate similarity convo.json --n 2

  # Every metric as JSON
  evaluate all convo.json --json
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := observability.SetLevel(state.logLevel); err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			state.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&state.logLevel, "log-level", "warn", "log verbosity (debug, info, warn, error)")

	root.AddCommand(
		newRecoveryCmd(state),
		newSimilarityCmd(state),
		newSentimentCmd(state),
		newAllCmd(state),
	)
	return root
}

func newRecoveryCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recovery <file>",
		Short: "Print the recovery rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTranscript(args[0])
			if err != nil {
				return err
			}
			window := state.cfg.Eval.RecoveryWindow
			if cmd.Flags().Changed("window") {
				window = state.window
			}
			if window <= 0 {
				return fmt.Errorf("--window must be positive, got %s", window)
			}
			return printScalar(cmd.OutOrStdout(), recovery.Rate(t, window))
		},
	}
	cmd.Flags().DurationVar(&state.window, "window", recovery.DefaultWindow, "response budget before a user turn counts as a timeout")
	return cmd
}

func newSimilarityCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similarity <file>",
		Short: "Print the average pairwise n-gram Jaccard similarity of agent replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTranscript(args[0])
			if err != nil {
				return err
			}
			order := state.cfg.Eval.NGramOrder
			if cmd.Flags().Changed("n") {
				order = state.order
			}
			score, err := similarity.FromTranscript(t, order)
			if err != nil {
				return err
			}
			return printScalar(cmd.OutOrStdout(), score)
		},
	}
	cmd.Flags().IntVar(&state.order, "n", similarity.DefaultOrder, "n-gram order")
	return cmd
}

func newSentimentCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentiment <file>",
		Short: "Print the logistic-normalized sentiment of agent replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTranscript(args[0])
			if err != nil {
				return err
			}
			scorer, err := polarity.NewScorer(cmd.Context(), state.cfg.AI, state.resolveBackend(cmd))
			if err != nil {
				return err
			}
			score, err := sentiment.Score(cmd.Context(), scorer, t.AgentUtterances())
			if err != nil {
				return err
			}
			return printScalar(cmd.OutOrStdout(), score)
		},
	}
	cmd.Flags().StringVar(&state.backend, "backend", config.SentimentLexicon, "polarity backend (lexicon, llm)")
	return cmd
}

func newAllCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all <file>",
		Short: "Print every metric with weighted and equal averages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTranscript(args[0])
			if err != nil {
				return err
			}
			scorer, err := polarity.NewScorer(cmd.Context(), state.cfg.AI, state.resolveBackend(cmd))
			if err != nil {
				return err
			}
			svc, err := evaluation.NewService(evaluation.OptionsFromConfig(state.cfg.Eval, scorer))
			if err != nil {
				return err
			}
			results, err := svc.EvaluateAll(cmd.Context(), t)
			if err != nil {
				return err
			}
			summary := evaluation.Summarize(results)

			if state.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return printTable(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&state.backend, "backend", config.SentimentLexicon, "polarity backend (lexicon, llm)")
	cmd.Flags().BoolVar(&state.asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func (s *cliState) resolveBackend(cmd *cobra.Command) string {
	if cmd.Flags().Changed("backend") {
		return s.backend
	}
	return s.cfg.Eval.SentimentBackend
}

func readTranscript(path string) (transcript.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := transcript.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func printScalar(w io.Writer, v float64) error {
	_, err := fmt.Fprintln(w, strconv.FormatFloat(v, 'f', -1, 64))
	return err
}

func printTable(w io.Writer, summary evaluation.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tVALUE\tRAW\tWEIGHT")
	for _, r := range summary.Results {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\n", r.Name, r.Value, r.RawValue, r.Weight)
	}
	fmt.Fprintf(tw, "weighted\t%.4f\t\t\n", summary.Weighted)
	fmt.Fprintf(tw, "equal\t%.4f\t\t\n", summary.Equal)
	return tw.Flush()
}
