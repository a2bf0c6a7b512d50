package logbook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ColumnMapping pairs a CSV header with a catalog field.
type ColumnMapping struct {
	Column     string  `json:"column"`
	FieldKey   string  `json:"field_key,omitempty"`
	Confidence float64 `json:"confidence"`
}

// MappedRow is one CSV row converted to entry values.
type MappedRow struct {
	Line     int            `json:"line"`
	Values   map[string]any `json:"values"`
	Warnings []string       `json:"warnings,omitempty"`
}

// ParsedCSV is a decoded file before mapping.
type ParsedCSV struct {
	Headers []string
	Rows    [][]string
}

var aliases = []struct {
	key   string
	names []string
}{
	{"date", []string{"date", "flight date", "flightdate", "datum"}},
	{"departure", []string{"dep", "from", "origin", "departure", "depart"}},
	{"arrival", []string{"arr", "to", "dest", "destination", "arrival"}},
	{"aircraft", []string{"ac", "aircraft", "acft", "aircraft type", "type"}},
	{"registration", []string{"reg", "registration", "tail", "tail number"}},
	{"totalTime", []string{"total", "total time", "flight time", "block time", "total flight time"}},
	{"picTime", []string{"pic", "pic time", "captain time"}},
	{"copilotTime", []string{"sic", "copilot", "co-pilot", "fo", "first officer"}},
	{"landingsDay", []string{"day landings", "landings day", "day ldg"}},
	{"landingsNight", []string{"night landings", "landings night", "night ldg"}},
}

const (
	partialWeight = 0.8
	aliasScore    = 0.9
)

// ParseCSV reads a header line and the data rows. Blank lines are skipped and
// short rows are padded.
func ParseCSV(r io.Reader) (*ParsedCSV, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &ParsedCSV{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	out := &ParsedCSV{Headers: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		row := make([]string, len(header))
		for i := range row {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// MapColumns guesses a field for every header. Exact name or key matches win
// outright; otherwise the best partial or alias match is used.
func MapColumns(headers []string) []ColumnMapping {
	out := make([]ColumnMapping, len(headers))
	for i, h := range headers {
		key, conf := matchHeader(h)
		out[i] = ColumnMapping{Column: h, FieldKey: key, Confidence: conf}
	}
	return out
}

func matchHeader(header string) (string, float64) {
	normalized := strings.ToLower(strings.TrimSpace(header))
	if normalized == "" {
		return "", 0
	}

	for _, f := range Catalog {
		if normalized == strings.ToLower(f.Name) || normalized == strings.ToLower(f.Key) {
			return f.Key, 1
		}
	}

	bestKey, best := "", 0.0
	for _, f := range Catalog {
		name := strings.ToLower(f.Name)
		if strings.Contains(normalized, name) || strings.Contains(name, normalized) {
			// shorter over longer, so a partial match never beats an alias
			ratio := float64(len(normalized)) / float64(len(name))
			if ratio > 1 {
				ratio = 1 / ratio
			}
			if conf := ratio * partialWeight; conf > best {
				bestKey, best = f.Key, conf
			}
		}
	}

	// aliases match whole words so "total" is not read as "to"
	padded := " " + normalized + " "
	for _, a := range aliases {
		for _, alias := range a.names {
			if strings.Contains(padded, " "+alias+" ") {
				if aliasScore > best {
					bestKey, best = a.key, aliasScore
				}
				break
			}
		}
	}
	return bestKey, best
}

// MapRows converts rows with the given mappings. Empty cells are skipped and
// unconvertible cells produce a warning instead of a value.
func MapRows(parsed *ParsedCSV, mappings []ColumnMapping) []MappedRow {
	index := make(map[string]int, len(parsed.Headers))
	for i, h := range parsed.Headers {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	out := make([]MappedRow, 0, len(parsed.Rows))
	for n, row := range parsed.Rows {
		mapped := MappedRow{Line: n + 2, Values: map[string]any{}}
		for _, m := range mappings {
			if m.FieldKey == "" {
				continue
			}
			col, ok := index[m.Column]
			if !ok || col >= len(row) || row[col] == "" {
				continue
			}
			field, ok := Lookup(m.FieldKey)
			if !ok {
				continue
			}
			v, err := ConvertValue(row[col], field.Type)
			if err != nil {
				mapped.Warnings = append(mapped.Warnings, fmt.Sprintf("Invalid %s: %s", field.Name, row[col]))
				continue
			}
			mapped.Values[field.Key] = v
		}
		if len(mapped.Values) == 0 && len(mapped.Warnings) == 0 {
			continue
		}
		out = append(out, mapped)
	}
	return out
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"02.01.2006",
	"01/02/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ConvertValue parses raw text for a field type. Dates normalize to YYYY-MM-DD.
func ConvertValue(raw, fieldType string) (any, error) {
	s := strings.TrimSpace(raw)
	switch fieldType {
	case TypeNumber:
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", s)
		}
		return f, nil
	case TypeDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("2006-01-02"), nil
			}
		}
		return nil, fmt.Errorf("invalid date %q", s)
	case TypeTime:
		for _, layout := range []string{"15:04", "1504", "15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("15:04"), nil
			}
		}
		return nil, fmt.Errorf("invalid time %q", s)
	default:
		return s, nil
	}
}
