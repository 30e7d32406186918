package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"investment-calculator/internal/calculator"
	"investment-calculator/internal/models"

	"dario.cat/mergo"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/titanous/json5"
)

var (
	calcInputs *[]string
	calcAsJSON *bool
)

func init() {
	calcInputs = calcCmd.Flags().StringSliceP("input", "i", []string{"-"},
		"JSON5 file with the calculator inputs (- reads stdin). Repeat to layer files; later files override earlier ones.")
	calcAsJSON = calcCmd.Flags().Bool("json", false, "Print the full result as JSON instead of a table.")
	rootCmd.AddCommand(calcCmd)
}

var calcCmd = &cobra.Command{
	Use:       "calc <mortgage|rental|airbnb|wholesale> [--input base.json5 [--input override.json5]]",
	Short:     "Runs a calculator locally and prints its outputs.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"mortgage", "rental", "airbnb", "wholesale"},
	RunE: func(cmd *cobra.Command, args []string) error {
		t := models.CalculatorType(args[0])
		raw, err := readInputs(cmd.InOrStdin(), *calcInputs)
		if err != nil {
			return err
		}

		result, err := calculator.Evaluate(t, raw)
		if err != nil {
			return err
		}
		if *calcAsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		outputs, err := calculator.Flatten(result.Outputs)
		if err != nil {
			return err
		}
		renderValues(cmd.OutOrStdout(), string(t), outputs)
		return nil
	},
}

// readInputs accepts JSON5 so input files can carry comments and trailing
// commas, merges the layers in order and re-encodes the result as strict
// JSON for the calculators.
func readInputs(stdin io.Reader, paths []string) (json.RawMessage, error) {
	merged := map[string]any{}
	for _, path := range paths {
		layer, err := readLayer(stdin, path)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(&merged, layer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge %s: %w", path, err)
		}
	}
	return json.Marshal(merged)
}

func readLayer(stdin io.Reader, path string) (map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	layer := map[string]any{}
	if len(data) == 0 {
		return layer, nil
	}
	if err := json5.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return layer, nil
}

func renderValues(w io.Writer, title string, values map[string]float64) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Metric", "Value"})
	for _, name := range calculator.Names(values) {
		t.AppendRow(table.Row{name, fmt.Sprintf("%.2f", values[name])})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
