// Package export renders saved analyses as CSV and PDF documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"investment-calculator/internal/models"
)

// Field is one flattened input or output value.
type Field struct {
	Key   string
	Value string
}

// Sections splits an analysis payload into sorted, flattened input and output
// fields. Nested objects become dotted keys; arrays are skipped.
func Sections(a models.Analysis) (inputs, outputs []Field, err error) {
	var payload struct {
		Inputs  map[string]any `json:"inputs"`
		Outputs map[string]any `json:"outputs"`
	}
	if len(a.Payload) > 0 {
		if err := json.Unmarshal(a.Payload, &payload); err != nil {
			return nil, nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	return flatten("", payload.Inputs), flatten("", payload.Outputs), nil
}

func flatten(prefix string, m map[string]any) []Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Field
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := m[k].(type) {
		case map[string]any:
			out = append(out, flatten(key, v)...)
		case []any:
		case nil:
			out = append(out, Field{Key: key})
		default:
			out = append(out, Field{Key: key, Value: formatValue(v)})
		}
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// CSV writes the analysis as section,field,value rows.
func CSV(w io.Writer, a models.Analysis) error {
	inputs, outputs, err := Sections(a)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "field", "value"},
		{"analysis", "address", a.Address},
		{"analysis", "type", string(a.CalculatorType)},
		{"analysis", "version", strconv.Itoa(a.Version)},
	}
	for _, f := range inputs {
		rows = append(rows, []string{"inputs", f.Key, f.Value})
	}
	for _, f := range outputs {
		rows = append(rows, []string{"outputs", f.Key, f.Value})
	}
	if a.Notes != "" {
		rows = append(rows, []string{"notes", "notes", a.Notes})
	}
	if a.AISummary != "" {
		rows = append(rows, []string{"insight", "aiSummary", a.AISummary})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]+`)

// Filename builds a download name such as "123-main-st-rental.csv".
func Filename(a models.Analysis, ext string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(a.Address), "-"), "-")
	if base == "" {
		base = fmt.Sprintf("analysis-%d", a.ID)
	}
	if len(base) > 60 {
		base = strings.TrimRight(base[:60], "-")
	}
	return fmt.Sprintf("%s-%s.%s", base, a.CalculatorType, ext)
}
