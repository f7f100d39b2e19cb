package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/usecase"
)

const (
	commentPreviewLength = 60
	tableWidth           = 120
)

func newScanCommand(opts *options) *cobra.Command {
	var score bool

	cmd := &cobra.Command{
		Use:   "scan <gtin>",
		Short: "Look up a product by barcode and list its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, services, log, err := opts.setup(true)
			if err != nil {
				return err
			}
			defer services.Close()
			defer log.Sync()

			result, err := services.Products.Scan(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("scan %s: %w", args[0], err)
			}

			reviews := []domain.Review{}
			if result.Reviews != nil {
				reviews = result.Reviews.Reviews
			}
			if score && len(reviews) > 0 {
				reviews, _, err = services.Scoring.ScoreAll(cmd.Context(), reviews)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			renderProduct(out, result)
			renderReviews(out, reviews, score, cfg.Display.CredibilityThreshold)
			return nil
		},
	}

	cmd.Flags().BoolVar(&score, "score", false, "score every review for credibility")
	return cmd
}

// renderProduct prints product details and its store offers.
func renderProduct(w io.Writer, result *usecase.ScanResult) {
	product := result.Product
	props := product.Properties

	details := table.NewWriter()
	details.SetOutputMirror(w)
	details.SetStyle(table.StyleLight)
	details.AppendRow(table.Row{"GTIN", product.GTIN})
	details.AppendRow(table.Row{"Title", product.PrimaryTitle()})
	if props.Brand != nil {
		details.AppendRow(table.Row{"Brand", *props.Brand})
	}
	if len(props.Description) > 0 {
		details.AppendRow(table.Row{"Description", truncate(strings.Join(props.Description, " "), tableWidth)})
	}
	if result.ReviewSource != nil {
		details.AppendRow(table.Row{"Reviews from", result.ReviewSource.ASIN + " (" + result.ReviewSource.Country + ")"})
	}
	if result.ReviewsError != "" {
		details.AppendRow(table.Row{"Reviews", result.ReviewsError})
	}
	details.Render()

	if len(product.Stores) == 0 {
		return
	}

	stores := table.NewWriter()
	stores.SetOutputMirror(w)
	stores.SetStyle(table.StyleLight)
	stores.AppendHeader(table.Row{"Store", "Price", "Link"})
	for _, store := range product.Stores {
		link := "-"
		if store.HasLink() {
			link = store.URL
		}
		stores.AppendRow(table.Row{store.Store, formatPrice(store.Price), link})
	}
	stores.Render()
}

// renderReviews prints one row per review with its credibility when scored.
func renderReviews(w io.Writer, reviews []domain.Review, scored bool, threshold float64) {
	if len(reviews) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignCenter},
	})

	header := table.Row{"#", "Title", "Stars", "Comment"}
	if scored {
		header = append(header, "Credibility", "Verdict")
	}
	t.AppendHeader(header)

	for i, review := range reviews {
		row := table.Row{i + 1, truncate(review.Title, 30), review.StarRating, truncate(oneLine(review.Comment), commentPreviewLength)}
		if scored {
			credibility, verdict := "n/a", "unavailable"
			if review.Credibility != nil {
				credibility = fmt.Sprintf("%.2f", review.Credibility.Score)
				verdict = "suspicious"
				if review.Credibility.Passes(threshold) {
					verdict = "credible"
				}
			}
			row = append(row, credibility, verdict)
		}
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{"Total", len(reviews)})
	t.Render()
}

func formatPrice(price *domain.Price) string {
	if price == nil {
		return "-"
	}
	value := price.Sale
	if value == nil {
		value = price.Price
	}
	if value == nil {
		value = price.List
	}
	if value == nil {
		return "-"
	}
	if price.Currency != nil {
		return *value + " " + *price.Currency
	}
	return *value
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
