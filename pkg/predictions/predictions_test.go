package predictions_test

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/BrettBoval/zoltpy/pkg/predictions"
	. "github.com/smartystreets/goconvey/convey"
)

func floatPtr(f float64) *float64 { return &f }

const sampleDoc = `{
  "meta": {"forecast": {"id": 71}},
  "predictions": [
    {"unit": "HHS Region 1", "target": "Season onset", "class": "bin",
     "prediction": {"cat": ["cat1", "cat2", "cat3"], "prob": [0.7, 0.2, 0.1]}},
    {"unit": "HHS Region 1", "target": "Season peak week", "class": "named",
     "prediction": {"family": "pois", "param1": 1.1}},
    {"unit": "HHS Region 2", "target": "Season onset", "class": "point",
     "prediction": {"value": "2019-12-22"}},
    {"unit": "HHS Region 2", "target": "Season peak percentage", "class": "sample",
     "prediction": {"sample": [0, 2, 5]}},
    {"unit": "HHS Region 3", "target": "Season peak percentage", "class": "quantile",
     "prediction": {"quantile": [0.25, 0.75], "value": [0, 50]}}
  ]
}`

func TestSetJSON(t *testing.T) {
	Convey("Given a JSON IO dict with all five prediction classes", t, func() {
		var set predictions.Set
		err := json.Unmarshal([]byte(sampleDoc), &set)
		So(err, ShouldBeNil)

		Convey("Then every entry decodes into its variant", func() {
			So(set.Predictions, ShouldHaveLength, 5)

			bin, ok := set.Predictions[0].Prediction.(predictions.Bin)
			So(ok, ShouldBeTrue)
			So(bin.Cats, ShouldResemble, []any{"cat1", "cat2", "cat3"})
			So(bin.Probs, ShouldResemble, []float64{0.7, 0.2, 0.1})

			named, ok := set.Predictions[1].Prediction.(predictions.Named)
			So(ok, ShouldBeTrue)
			So(named.Family, ShouldEqual, "pois")
			So(*named.Param1, ShouldEqual, 1.1)
			So(named.Param2, ShouldBeNil)

			point, ok := set.Predictions[2].Prediction.(predictions.Point)
			So(ok, ShouldBeTrue)
			So(point.Value, ShouldEqual, "2019-12-22")

			sample, ok := set.Predictions[3].Prediction.(predictions.Sample)
			So(ok, ShouldBeTrue)
			So(sample.Values, ShouldHaveLength, 3)

			quant, ok := set.Predictions[4].Prediction.(predictions.Quantile)
			So(ok, ShouldBeTrue)
			So(quant.Quantiles, ShouldResemble, []float64{0.25, 0.75})
		})

		Convey("And the meta section is carried through untouched", func() {
			So(string(set.Meta), ShouldContainSubstring, `"id"`)
		})

		Convey("When marshaled and decoded again", func() {
			out, err := json.Marshal(set)
			So(err, ShouldBeNil)

			var again predictions.Set
			So(json.Unmarshal(out, &again), ShouldBeNil)

			Convey("Then the set survives the round trip", func() {
				So(again.Predictions, ShouldResemble, set.Predictions)
			})
		})
	})

	Convey("Given a document with an unrecognized class", t, func() {
		doc := `{"predictions": [
			{"unit": "u", "target": "t", "class": "binn", "prediction": {"cat": [], "prob": []}}
		]}`
		var set predictions.Set
		err := json.Unmarshal([]byte(doc), &set)

		Convey("Then decoding fails with a format error naming the class", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, predictions.ErrFormat), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "binn")
		})
	})

	Convey("Given a document without a predictions section", t, func() {
		var set predictions.Set
		err := json.Unmarshal([]byte(`{"meta": {}}`), &set)

		Convey("Then decoding fails with a format error", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, predictions.ErrFormat), ShouldBeTrue)
		})
	})

	Convey("Given a bin entry with ragged parallel arrays", t, func() {
		doc := `{"predictions": [
			{"unit": "u", "target": "t", "class": "bin", "prediction": {"cat": ["a", "b"], "prob": [1.0]}}
		]}`
		var set predictions.Set
		err := json.Unmarshal([]byte(doc), &set)

		Convey("Then decoding fails with a format error", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, predictions.ErrFormat), ShouldBeTrue)
		})
	})

	Convey("Given an entry with no prediction payload", t, func() {
		set := predictions.Set{Predictions: []predictions.Entry{{Unit: "u", Target: "t"}}}
		_, err := json.Marshal(set)

		Convey("Then marshaling fails with a format error", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, predictions.ErrFormat), ShouldBeTrue)
		})
	})

	Convey("Given a named prediction with absent parameters", t, func() {
		set := predictions.Set{Predictions: []predictions.Entry{{
			Unit: "u", Target: "t",
			Prediction: predictions.Named{Family: "norm", Param1: floatPtr(2.3)},
		}}}
		out, err := json.Marshal(set)
		So(err, ShouldBeNil)

		Convey("Then absent params are omitted from the wire form", func() {
			So(string(out), ShouldContainSubstring, `"param1"`)
			So(string(out), ShouldNotContainSubstring, `"param2"`)
			So(string(out), ShouldNotContainSubstring, `"param3"`)
		})
	})
}
