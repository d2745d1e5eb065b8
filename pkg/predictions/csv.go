package predictions

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/BrettBoval/zoltpy/pkg/metrics"
)

// Column layout of the tabular form. The first three columns are always
// non-empty; the rest are sparse per class.
const (
	colUnit = iota
	colTarget
	colClass
	colValue
	colCat
	colProb
	colSample
	colQuantile
	colFamily
	colParam1
	colParam2
	colParam3

	numColumns
)

var tableHeader = []string{ //nolint:gochecknoglobals // fixed column order of the tabular form
	"unit", "target", "class", "value", "cat", "prob",
	"sample", "quantile", "family", "param1", "param2", "param3",
}

// Header returns the fixed 12-column header row.
func Header() []string {
	return slices.Clone(tableHeader)
}

// ToRows flattens the set into tabular rows, header first. Each entry
// contributes one row per elementary value: one per (cat, prob) pair for
// bin, one per sample, one per (quantile, value) pair, and exactly one row
// for point and named. Source order is preserved; the meta section is
// ignored. Any malformed entry aborts the whole conversion.
func ToRows(set *Set) ([][]string, error) {
	rows := make([][]string, 1, len(set.Predictions)+1)
	rows[0] = Header()

	for _, e := range set.Predictions {
		if e.Prediction == nil {
			return nil, fmt.Errorf("%w: entry %s/%s has no prediction", ErrFormat, e.Unit, e.Target)
		}
		switch p := e.Prediction.(type) {
		case Bin:
			if err := p.validate(); err != nil {
				return nil, fmt.Errorf("entry %s/%s: %w", e.Unit, e.Target, err)
			}
			for i := range p.Cats {
				row := blankRow(e, ClassBin)
				row[colCat] = formatValue(p.Cats[i])
				row[colProb] = formatFloat(p.Probs[i])
				rows = append(rows, row)
			}
		case Named:
			row := blankRow(e, ClassNamed)
			row[colFamily] = p.Family
			row[colParam1] = formatOptFloat(p.Param1)
			row[colParam2] = formatOptFloat(p.Param2)
			row[colParam3] = formatOptFloat(p.Param3)
			rows = append(rows, row)
		case Point:
			row := blankRow(e, ClassPoint)
			row[colValue] = formatValue(p.Value)
			rows = append(rows, row)
		case Sample:
			for _, v := range p.Values {
				row := blankRow(e, ClassSample)
				row[colSample] = formatValue(v)
				rows = append(rows, row)
			}
		case Quantile:
			if err := p.validate(); err != nil {
				return nil, fmt.Errorf("entry %s/%s: %w", e.Unit, e.Target, err)
			}
			for i := range p.Quantiles {
				row := blankRow(e, ClassQuantile)
				row[colQuantile] = formatFloat(p.Quantiles[i])
				row[colValue] = formatValue(p.Values[i])
				rows = append(rows, row)
			}
		default:
			return nil, fmt.Errorf("%w: unrecognized prediction class %q", ErrFormat, e.Prediction.Class())
		}
	}

	metrics.RecordRowsEncoded(len(rows) - 1)
	return rows, nil
}

// FromRows folds tabular rows (header first) back into a prediction set.
// Consecutive rows sharing (unit, target, class) merge into one entry for
// the multi-row classes; point and named rows each form their own entry.
// Row order within an entry is preserved.
func FromRows(rows [][]string) (*Set, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrFormat)
	}
	if !slices.Equal(rows[0], tableHeader) {
		return nil, fmt.Errorf("%w: bad header %v", ErrFormat, rows[0])
	}

	set := &Set{}
	for i := 1; i < len(rows); {
		row := rows[i]
		if len(row) != numColumns {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrFormat, i, len(row), numColumns)
		}
		unit, target, class := row[colUnit], row[colTarget], Class(row[colClass])

		switch class {
		case ClassPoint:
			set.Predictions = append(set.Predictions, Entry{
				Unit: unit, Target: target,
				Prediction: Point{Value: parseValue(row[colValue])},
			})
			i++
		case ClassNamed:
			named := Named{Family: row[colFamily]}
			var err error
			if named.Param1, err = parseOptFloat(row[colParam1]); err != nil {
				return nil, fmt.Errorf("%w: row %d param1: %v", ErrFormat, i, err)
			}
			if named.Param2, err = parseOptFloat(row[colParam2]); err != nil {
				return nil, fmt.Errorf("%w: row %d param2: %v", ErrFormat, i, err)
			}
			if named.Param3, err = parseOptFloat(row[colParam3]); err != nil {
				return nil, fmt.Errorf("%w: row %d param3: %v", ErrFormat, i, err)
			}
			set.Predictions = append(set.Predictions, Entry{Unit: unit, Target: target, Prediction: named})
			i++
		case ClassBin, ClassSample, ClassQuantile:
			group, next, err := foldGroup(rows, i, unit, target, class)
			if err != nil {
				return nil, err
			}
			set.Predictions = append(set.Predictions, Entry{Unit: unit, Target: target, Prediction: group})
			i = next
		default:
			return nil, fmt.Errorf("%w: row %d has unrecognized prediction class %q", ErrFormat, i, class)
		}
	}

	metrics.RecordRowsDecoded(len(rows) - 1)
	return set, nil
}

// foldGroup consumes the run of rows starting at i that share (unit, target,
// class) and builds the multi-row variant. Returns the prediction and the
// index of the first row past the run.
func foldGroup(rows [][]string, i int, unit, target string, class Class) (Prediction, int, error) {
	var bin Bin
	var sample Sample
	var quant Quantile

	j := i
	for ; j < len(rows); j++ {
		row := rows[j]
		if len(row) != numColumns {
			return nil, 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrFormat, j, len(row), numColumns)
		}
		if row[colUnit] != unit || row[colTarget] != target || Class(row[colClass]) != class {
			break
		}
		switch class {
		case ClassBin:
			prob, err := strconv.ParseFloat(row[colProb], 64)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: row %d prob %q: %v", ErrFormat, j, row[colProb], err)
			}
			bin.Cats = append(bin.Cats, parseValue(row[colCat]))
			bin.Probs = append(bin.Probs, prob)
		case ClassSample:
			sample.Values = append(sample.Values, parseValue(row[colSample]))
		case ClassQuantile:
			q, err := strconv.ParseFloat(row[colQuantile], 64)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: row %d quantile %q: %v", ErrFormat, j, row[colQuantile], err)
			}
			quant.Quantiles = append(quant.Quantiles, q)
			quant.Values = append(quant.Values, parseValue(row[colValue]))
		}
	}

	switch class {
	case ClassBin:
		return bin, j, nil
	case ClassSample:
		return sample, j, nil
	default:
		return quant, j, nil
	}
}

// WriteCSV writes the set's tabular form, header included, as CSV.
func WriteCSV(w io.Writer, set *Set) error {
	rows, err := ToRows(set)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV reads a CSV document in the tabular form back into a set.
func ReadCSV(r io.Reader) (*Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numColumns
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return FromRows(rows)
}

func blankRow(e Entry, class Class) []string {
	row := make([]string, numColumns)
	row[colUnit] = e.Unit
	row[colTarget] = e.Target
	row[colClass] = string(class)
	return row
}

// formatValue renders a heterogeneous elementary value. Strings pass
// through verbatim (dates stay dates); numbers render without exponent
// notation so the table round-trips.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatFloat(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}

// parseValue is the inverse of formatValue: numeric cells become float64,
// everything else stays a string. Empty cells decode as nil.
func parseValue(s string) any {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
