package main

import (
	"fmt"

	"investment-calculator/internal/models"
	"investment-calculator/internal/server"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var scrapeType *string

func init() {
	scrapeType = scrapeCmd.Flags().StringP("type", "t", "", "Also print prefilled inputs for this calculator.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <listing-url> [--type rental]",
	Short: "Imports a Redfin or Realtor.com listing and prints what was found.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := server.NewScraper(cfg.Scraper)
		if err != nil {
			return err
		}
		listing, err := s.Scrape(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetTitle(string(listing.Site))
		t.AppendRows([]table.Row{
			{"Address", listing.Address},
			{"Price", fmt.Sprintf("%.0f", listing.Price)},
			{"Beds", listing.Beds},
			{"Baths", listing.Baths},
			{"Sqft", listing.Sqft},
			{"Year built", listing.YearBuilt},
			{"HOA / month", listing.HOAMonthly},
			{"Tax / year", listing.PropertyTaxAnnual},
			{"Type", listing.PropertyType},
		})
		t.SetStyle(table.StyleRounded)
		t.Render()

		if *scrapeType != "" {
			ct := models.CalculatorType(*scrapeType)
			if !ct.Valid() {
				return fmt.Errorf("unknown calculator type %q", ct)
			}
			renderValues(cmd.OutOrStdout(), "prefill: "+string(ct), listing.Prefill(ct))
		}
		return nil
	},
}
