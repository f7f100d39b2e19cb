package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/trustscan/backend/internal/domain"
)

func newScoreCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "score <review text>",
		Short: "Score the credibility of a review comment",
		Long: `Score runs a review comment through the credibility pipeline with the
configured classifier model. No API keys are needed.`,
		Example: `  trustscan score "Amazing product, best purchase ever!!!"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, services, log, err := opts.setup(false)
			if err != nil {
				return err
			}
			defer services.Close()
			defer log.Sync()

			review := domain.Review{Comment: strings.Join(args, " ")}
			result, err := services.Scoring.Score(cmd.Context(), review)
			if err != nil {
				return fmt.Errorf("score review: %w", err)
			}

			renderCredibility(cmd.OutOrStdout(), result, cfg.Display.CredibilityThreshold)
			return nil
		},
	}
}

// renderCredibility prints the label distribution followed by the resolved score.
func renderCredibility(w io.Writer, c *domain.Credibility, threshold float64) {
	labels := make([]string, 0, len(c.Distribution))
	for label := range c.Distribution {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Label", "Probability"})
	for _, label := range labels {
		marker := ""
		if label == c.Label {
			marker = " *"
		}
		t.AppendRow(table.Row{label + marker, fmt.Sprintf("%.4f", c.Distribution[label])})
	}

	verdict := "suspicious"
	if c.Passes(threshold) {
		verdict = "credible"
	}
	t.AppendFooter(table.Row{"Credibility", fmt.Sprintf("%.4f (%s, threshold %.2f)", c.Score, verdict, threshold)})
	t.Render()
}
