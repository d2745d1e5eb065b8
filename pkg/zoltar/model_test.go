package zoltar_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/BrettBoval/zoltpy/pkg/predictions"
	. "github.com/smartystreets/goconvey/convey"
)

const forecastDoc = `{
	"meta": {"forecast": {"source": "f.json"}},
	"predictions": [
		{"unit": "01", "target": "1 wk ahead", "class": "point",
		 "prediction": {"value": 2.1}}
	]
}`

func TestUploadForecast(t *testing.T) {
	Convey("Given a model proxy and interchange data", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()

		type upload struct {
			fields      map[string]string
			filename    string
			contentType string
			data        string
		}
		var got upload
		z.handle("/api/model/5/forecasts/", func(r *http.Request) (int, any) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				return http.StatusBadRequest, map[string]string{"error": err.Error()}
			}
			got.fields = map[string]string{}
			for key, vals := range r.MultipartForm.Value {
				got.fields[key] = vals[0]
			}
			file, header, err := r.FormFile("data_file")
			if err != nil {
				return http.StatusBadRequest, map[string]string{"error": err.Error()}
			}
			defer file.Close()
			body, _ := io.ReadAll(file)
			got.filename = header.Filename
			got.contentType = header.Header.Get("Content-Type")
			got.data = string(body)
			return http.StatusOK, map[string]any{
				"url": z.base() + "/api/job/2/", "status": 0,
			}
		})
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)
		model := conn.ModelForURI(z.base() + "/api/model/5/")

		Convey("When a forecast is uploaded with a data version date", func() {
			job, err := model.UploadForecast(ctx, strings.NewReader(forecastDoc),
				"EW01-2020.json", "2020-05-04", "2020-05-05")

			Convey("Then the multipart form carries the metadata and file", func() {
				So(err, ShouldBeNil)
				So(got.fields["timezero_date"], ShouldEqual, "2020-05-04")
				So(got.fields["data_version_date"], ShouldEqual, "2020-05-05")
				So(got.filename, ShouldEqual, "EW01-2020.json")
				So(got.contentType, ShouldEqual, "application/json")
				So(got.data, ShouldEqual, forecastDoc)
				So(job.URI(), ShouldEndWith, "/api/job/2/")
			})

			Convey("Then the job proxy is uncached and fetches on first read", func() {
				So(err, ShouldBeNil)
				z.handle("/api/job/2/", func(*http.Request) (int, any) {
					return http.StatusOK, map[string]any{"status": 2}
				})
				_, err := job.Status(ctx)
				So(err, ShouldBeNil)
				So(z.count("GET", "/api/job/2/"), ShouldEqual, 1)
			})
		})

		Convey("When no data version date is given", func() {
			_, err := model.UploadForecast(ctx, strings.NewReader(forecastDoc),
				"EW01-2020.json", "2020-05-04", "")

			Convey("Then the field is omitted entirely", func() {
				So(err, ShouldBeNil)
				_, present := got.fields["data_version_date"]
				So(present, ShouldBeFalse)
			})
		})
	})
}

func TestForecastData(t *testing.T) {
	Convey("Given a forecast with interchange data behind its locator", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()

		z.handle("/api/forecast/71/", func(*http.Request) (int, any) {
			return http.StatusOK, map[string]any{
				"source":        "f.json",
				"forecast_data": z.base() + "/api/forecast/71/data/",
				"time_zero":     z.base() + "/api/timezero/31/",
			}
		})
		z.mux.HandleFunc("/api/forecast/71/data/", func(w http.ResponseWriter, r *http.Request) {
			z.mu.Lock()
			z.hits["GET /api/forecast/71/data/"]++
			z.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, forecastDoc)
		})
		z.handle("/api/timezero/31/", func(*http.Request) (int, any) {
			return http.StatusOK, map[string]any{"timezero_date": "2020-05-04"}
		})
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)
		forecast := conn.ForecastForURI(z.base() + "/api/forecast/71/")

		Convey("When the data is fetched", func() {
			set, err := forecast.Data(ctx)

			Convey("Then it decodes as an interchange document", func() {
				So(err, ShouldBeNil)
				So(set.Predictions, ShouldHaveLength, 1)
				So(set.Predictions[0].Unit, ShouldEqual, "01")
				point, ok := set.Predictions[0].Prediction.(predictions.Point)
				So(ok, ShouldBeTrue)
				So(point.Value, ShouldEqual, 2.1)
				So(z.count("GET", "/api/forecast/71/data/"), ShouldEqual, 1)
			})
		})

		Convey("When the timezero date is read", func() {
			date, err := forecast.TimeZeroDate(ctx)

			Convey("Then it resolves through the timezero proxy", func() {
				So(err, ShouldBeNil)
				So(date, ShouldEqual, "2020-05-04")
				So(z.count("GET", "/api/timezero/31/"), ShouldEqual, 1)
			})
		})
	})
}

func TestForecastForID(t *testing.T) {
	Convey("Given a model", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)
		model := conn.ModelForURI(z.base() + "/api/model/5/")

		Convey("Then ForecastForID builds an unfetched proxy with the right locator", func() {
			forecast := model.ForecastForID(71)
			So(forecast.URI(), ShouldEqual, z.base()+"/api/forecast/71/")
			id, err := forecast.ID()
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 71)
		})
	})
}

func TestJobStatus(t *testing.T) {
	Convey("Given wire status codes", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()

		codes := []struct {
			code int
			want string
		}{
			{0, "PENDING"}, {1, "CLOUD_FILE_UPLOADED"}, {2, "QUEUED"},
			{3, "CLOUD_FILE_DOWNLOADED"}, {4, "SUCCESS"}, {5, "FAILED"},
		}
		var code int
		z.handle("/api/job/2/", func(*http.Request) (int, any) {
			return http.StatusOK, map[string]any{"status": code}
		})
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)

		Convey("Then each known code maps to its lifecycle state", func() {
			for _, c := range codes {
				code = c.code
				job := conn.JobForURI(z.base() + "/api/job/2/")
				status, err := job.Status(ctx)
				So(err, ShouldBeNil)
				So(status.String(), ShouldEqual, c.want)
			}
		})

		Convey("Then a code outside the range is a protocol violation", func() {
			code = 6
			job := conn.JobForURI(z.base() + "/api/job/2/")
			_, err := job.Status(ctx)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "status code 6")
		})
	})
}

func TestJobOutput(t *testing.T) {
	Convey("Given a finished job", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()

		z.handle("/api/job/2/", func(*http.Request) (int, any) {
			return http.StatusOK, map[string]any{
				"status":          4,
				"output_json":     map[string]any{"forecast_pk": 71},
				"failure_message": "",
			}
		})
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)
		job := conn.JobForURI(z.base() + "/api/job/2/")

		Convey("Then the output section is available", func() {
			out, err := job.OutputJSON(ctx)
			So(err, ShouldBeNil)
			So(out["forecast_pk"], ShouldEqual, float64(71))

			msg, err := job.FailureMessage(ctx)
			So(err, ShouldBeNil)
			So(msg, ShouldEqual, "")
		})
	})
}
