// Package predictions defines the forecast prediction interchange format:
// a hierarchical prediction set grouped by unit and target, its JSON wire
// form (the "JSON IO dict"), and its flat 12-column tabular rendering.
package predictions

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Class tags the five recognized prediction variants.
type Class string

const (
	ClassBin      Class = "bin"
	ClassNamed    Class = "named"
	ClassPoint    Class = "point"
	ClassSample   Class = "sample"
	ClassQuantile Class = "quantile"
)

// Prediction is a closed sum over the five variants. The unexported method
// keeps the set of implementations fixed to this package, so a missing case
// in a type switch is a local bug rather than a silent skip.
type Prediction interface {
	Class() Class
	sealed()
}

// Bin is a binned distribution: parallel category and probability arrays.
type Bin struct {
	Cats  []any     `json:"cat"`
	Probs []float64 `json:"prob"`
}

func (Bin) Class() Class { return ClassBin }
func (Bin) sealed()      {}

func (p Bin) validate() error {
	if len(p.Cats) != len(p.Probs) {
		return fmt.Errorf("%w: bin cat/prob length mismatch: %d vs %d",
			ErrFormat, len(p.Cats), len(p.Probs))
	}
	return nil
}

// Named is a parametric distribution family with up to three parameters.
// Absent parameters are nil and render as empty table cells.
type Named struct {
	Family string   `json:"family"`
	Param1 *float64 `json:"param1,omitempty"`
	Param2 *float64 `json:"param2,omitempty"`
	Param3 *float64 `json:"param3,omitempty"`
}

func (Named) Class() Class { return ClassNamed }
func (Named) sealed()      {}

// Point is a single scalar value. Values are heterogeneous on the wire
// (numbers, strings, dates-as-strings), so it stays untyped.
type Point struct {
	Value any `json:"value"`
}

func (Point) Class() Class { return ClassPoint }
func (Point) sealed()      {}

// Sample is a list of sampled values.
type Sample struct {
	Values []any `json:"sample"`
}

func (Sample) Class() Class { return ClassSample }
func (Sample) sealed()      {}

// Quantile is a quantile distribution: parallel quantile and value arrays.
type Quantile struct {
	Quantiles []float64 `json:"quantile"`
	Values    []any     `json:"value"`
}

func (Quantile) Class() Class { return ClassQuantile }
func (Quantile) sealed()      {}

func (p Quantile) validate() error {
	if len(p.Quantiles) != len(p.Values) {
		return fmt.Errorf("%w: quantile/value length mismatch: %d vs %d",
			ErrFormat, len(p.Quantiles), len(p.Values))
	}
	return nil
}

// Entry is one prediction for a (unit, target) pair.
type Entry struct {
	Unit       string
	Target     string
	Prediction Prediction
}

// Set is an ordered sequence of prediction entries plus an opaque meta
// section. Meta is carried through JSON untouched and ignored by the
// tabular codec.
type Set struct {
	Meta        json.RawMessage
	Predictions []Entry
}

// entryJSON mirrors one element of the "predictions" array on the wire.
type entryJSON struct {
	Unit       string          `json:"unit"`
	Target     string          `json:"target"`
	Class      Class           `json:"class"`
	Prediction json.RawMessage `json:"prediction"`
}

type setJSON struct {
	Meta        json.RawMessage `json:"meta,omitempty"`
	Predictions []entryJSON     `json:"predictions"`
}

// MarshalJSON renders the entry in wire form with the class tag alongside
// the variant payload.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Prediction == nil {
		return nil, fmt.Errorf("%w: entry %s/%s has no prediction", ErrFormat, e.Unit, e.Target)
	}
	payload, err := json.Marshal(e.Prediction)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entryJSON{
		Unit:       e.Unit,
		Target:     e.Target,
		Class:      e.Prediction.Class(),
		Prediction: payload,
	})
}

// UnmarshalJSON decodes one wire entry, dispatching on the class tag.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p, err := decodePrediction(raw.Class, raw.Prediction)
	if err != nil {
		return fmt.Errorf("entry %s/%s: %w", raw.Unit, raw.Target, err)
	}
	e.Unit = raw.Unit
	e.Target = raw.Target
	e.Prediction = p
	return nil
}

// MarshalJSON renders the set as a JSON IO dict.
func (s Set) MarshalJSON() ([]byte, error) {
	out := setJSON{Meta: s.Meta, Predictions: make([]entryJSON, 0, len(s.Predictions))}
	for _, e := range s.Predictions {
		if e.Prediction == nil {
			return nil, fmt.Errorf("%w: entry %s/%s has no prediction", ErrFormat, e.Unit, e.Target)
		}
		payload, err := json.Marshal(e.Prediction)
		if err != nil {
			return nil, err
		}
		out.Predictions = append(out.Predictions, entryJSON{
			Unit:       e.Unit,
			Target:     e.Target,
			Class:      e.Prediction.Class(),
			Prediction: payload,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a JSON IO dict. A document without a "predictions"
// section is rejected.
func (s *Set) UnmarshalJSON(b []byte) error {
	var raw struct {
		Meta        json.RawMessage `json:"meta"`
		Predictions *[]Entry        `json:"predictions"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Predictions == nil {
		return fmt.Errorf("%w: no predictions section", ErrFormat)
	}
	s.Meta = raw.Meta
	s.Predictions = *raw.Predictions
	return nil
}

func decodePrediction(class Class, raw json.RawMessage) (Prediction, error) {
	switch class {
	case ClassBin:
		var p Bin
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: bin payload: %v", ErrFormat, err)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		return p, nil
	case ClassNamed:
		var p Named
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: named payload: %v", ErrFormat, err)
		}
		return p, nil
	case ClassPoint:
		var p Point
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: point payload: %v", ErrFormat, err)
		}
		return p, nil
	case ClassSample:
		var p Sample
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: sample payload: %v", ErrFormat, err)
		}
		return p, nil
	case ClassQuantile:
		var p Quantile
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: quantile payload: %v", ErrFormat, err)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized prediction class %q", ErrFormat, class)
	}
}
