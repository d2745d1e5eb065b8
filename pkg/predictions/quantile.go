package predictions

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// quantileHeader is the fixed header of the quantile CSV upload format.
// Each data row is typed "point" or "quantile".
var quantileHeader = []string{"location", "target", "type", "quantile", "value"} //nolint:gochecknoglobals // fixed wire header

const (
	rowTypePoint    = "point"
	rowTypeQuantile = "quantile"
)

type quantileRow struct {
	location string
	target   string
	isPoint  bool
	quantile float64
	value    any
}

// FromQuantileCSV parses a quantile CSV document into a prediction set. All
// point rows for a (location, target) pair fold into one point entry (more
// than one point value is rejected), and all quantile rows fold into one
// quantile entry. The returned meta section is empty.
func FromQuantileCSV(r io.Reader) (*Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(quantileHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrFormat)
	}
	if !equalFold(records[0], quantileHeader) {
		return nil, fmt.Errorf("%w: bad quantile csv header %v, want %v", ErrFormat, records[0], quantileHeader)
	}

	rows := make([]quantileRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseQuantileRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}

	// Group rows by (location, target, type). A stable sort keeps the
	// source order of quantile values within each group.
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.location != b.location {
			return a.location < b.location
		}
		if a.target != b.target {
			return a.target < b.target
		}
		return a.isPoint && !b.isPoint
	})

	set := &Set{}
	for i := 0; i < len(rows); {
		j := i
		for ; j < len(rows); j++ {
			if rows[j].location != rows[i].location || rows[j].target != rows[i].target ||
				rows[j].isPoint != rows[i].isPoint {
				break
			}
		}
		group := rows[i:j]
		entry, err := entryFromQuantileGroup(group)
		if err != nil {
			return nil, err
		}
		set.Predictions = append(set.Predictions, entry)
		i = j
	}
	return set, nil
}

func parseQuantileRow(rec []string) (quantileRow, error) {
	location, target := rec[0], rec[1]
	rowType := strings.ToLower(strings.TrimSpace(rec[2]))

	row := quantileRow{location: location, target: target, value: parseValue(rec[4])}
	switch rowType {
	case rowTypePoint:
		row.isPoint = true
	case rowTypeQuantile:
		q, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return quantileRow{}, fmt.Errorf("%w: quantile %q: %v", ErrFormat, rec[3], err)
		}
		row.quantile = q
	default:
		return quantileRow{}, fmt.Errorf("%w: unrecognized row type %q", ErrFormat, rec[2])
	}
	return row, nil
}

func entryFromQuantileGroup(group []quantileRow) (Entry, error) {
	first := group[0]
	if first.isPoint {
		if len(group) > 1 {
			return Entry{}, fmt.Errorf("%w: %s/%s has %d point values, want 1",
				ErrFormat, first.location, first.target, len(group))
		}
		return Entry{
			Unit: first.location, Target: first.target,
			Prediction: Point{Value: first.value},
		}, nil
	}

	quant := Quantile{
		Quantiles: make([]float64, 0, len(group)),
		Values:    make([]any, 0, len(group)),
	}
	for _, row := range group {
		quant.Quantiles = append(quant.Quantiles, row.quantile)
		quant.Values = append(quant.Values, row.value)
	}
	return Entry{Unit: first.location, Target: first.target, Prediction: quant}, nil
}

func equalFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(strings.TrimSpace(a[i]), b[i]) {
			return false
		}
	}
	return true
}
