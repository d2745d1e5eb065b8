package zoltar_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BrettBoval/zoltpy/pkg/predictions"
	"github.com/BrettBoval/zoltpy/pkg/zoltar"
	. "github.com/smartystreets/goconvey/convey"
)

// seedTree populates the fake server with one project, one model, and one
// forecast reachable by name.
func seedTree(z *zoltarServer) {
	z.handle("/api/projects/", func(*http.Request) (int, any) {
		return http.StatusOK, []map[string]any{
			projectDoc(z.base(), 3, "Docs Example Project", true),
		}
	})
	z.handle("/api/project/3/models/", func(*http.Request) (int, any) {
		return http.StatusOK, []map[string]any{
			{"url": z.base() + "/api/model/5/", "name": "docs forecast model"},
		}
	})
	z.handle("/api/model/5/forecasts/", func(*http.Request) (int, any) {
		return http.StatusOK, []map[string]any{
			{"url": z.base() + "/api/forecast/71/", "source": "f.json",
				"timezero_date": "2020-05-04",
				"forecast_data": z.base() + "/api/forecast/71/data/"},
		}
	})
	z.mux.HandleFunc("/api/forecast/71/data/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, forecastDoc)
	})
}

func TestByNameLookups(t *testing.T) {
	Convey("Given a seeded resource tree", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()
		seedTree(z)
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)

		Convey("Then lookups by name resolve to the right proxies", func() {
			project, err := zoltar.ProjectByName(ctx, conn, "Docs Example Project")
			So(err, ShouldBeNil)
			So(project.URI(), ShouldEndWith, "/api/project/3/")

			model, err := zoltar.ModelByName(ctx, project, "docs forecast model")
			So(err, ShouldBeNil)
			So(model.URI(), ShouldEndWith, "/api/model/5/")

			forecast, err := zoltar.ForecastForTimeZero(ctx, model, "2020-05-04")
			So(err, ShouldBeNil)
			So(forecast.URI(), ShouldEndWith, "/api/forecast/71/")
		})

		Convey("Then missing names report not found", func() {
			_, err := zoltar.ProjectByName(ctx, conn, "no such project")
			So(errors.Is(err, zoltar.ErrNotFound), ShouldBeTrue)

			project, err := zoltar.ProjectByName(ctx, conn, "Docs Example Project")
			So(err, ShouldBeNil)
			_, err = zoltar.ModelByName(ctx, project, "no such model")
			So(errors.Is(err, zoltar.ErrNotFound), ShouldBeTrue)

			model, err := zoltar.ModelByName(ctx, project, "docs forecast model")
			So(err, ShouldBeNil)
			_, err = zoltar.ForecastForTimeZero(ctx, model, "1999-01-01")
			So(errors.Is(err, zoltar.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestDownloadForecast(t *testing.T) {
	Convey("Given a seeded resource tree", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()
		seedTree(z)
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)

		Convey("When a forecast is downloaded by name", func() {
			set, err := zoltar.DownloadForecast(ctx, conn,
				"Docs Example Project", "docs forecast model", "2020-05-04")

			Convey("Then the interchange document comes back", func() {
				So(err, ShouldBeNil)
				So(set.Predictions, ShouldHaveLength, 1)
				_, ok := set.Predictions[0].Prediction.(predictions.Point)
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestDeleteForecastByName(t *testing.T) {
	Convey("Given a seeded resource tree", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()
		seedTree(z)
		z.handle("/api/forecast/71/", func(r *http.Request) (int, any) {
			if r.Method == http.MethodDelete {
				return http.StatusNoContent, nil
			}
			return http.StatusOK, map[string]any{"source": "f.json"}
		})
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)

		Convey("When the forecast exists", func() {
			err := zoltar.DeleteForecast(ctx, conn,
				"Docs Example Project", "docs forecast model", "2020-05-04")
			So(err, ShouldBeNil)
			So(z.count("DELETE", "/api/forecast/71/"), ShouldEqual, 1)
		})

		Convey("When no forecast exists for the timezero", func() {
			err := zoltar.DeleteForecast(ctx, conn,
				"Docs Example Project", "docs forecast model", "1999-01-01")

			Convey("Then nothing is deleted and no error is reported", func() {
				So(err, ShouldBeNil)
				So(z.count("DELETE", "/api/forecast/71/"), ShouldEqual, 0)
			})
		})
	})
}

func TestBusyPollJob(t *testing.T) {
	Convey("Given a job that settles after a few polls", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()

		var polls atomic.Int64
		z.handle("/api/job/2/", func(*http.Request) (int, any) {
			n := polls.Add(1)
			doc := map[string]any{"status": 2, "failure_message": ""}
			if n >= 3 {
				doc["status"] = 4
			}
			return http.StatusOK, doc
		})
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)

		Convey("When the job eventually succeeds", func() {
			job := conn.JobForURI(z.base() + "/api/job/2/")
			done, err := zoltar.BusyPollJob(ctx, job, time.Millisecond)

			Convey("Then polling stops at SUCCESS", func() {
				So(err, ShouldBeNil)
				status, err := done.Status(ctx)
				So(err, ShouldBeNil)
				So(status, ShouldEqual, zoltar.StatusSuccess)
				So(polls.Load(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a job that fails", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()

		z.handle("/api/job/2/", func(*http.Request) (int, any) {
			return http.StatusOK, map[string]any{
				"status": 5, "failure_message": "invalid timezero",
			}
		})
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)

		Convey("Then the failure message surfaces in the error", func() {
			job := conn.JobForURI(z.base() + "/api/job/2/")
			_, err := zoltar.BusyPollJob(ctx, job, time.Millisecond)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "invalid timezero")
		})
	})

	Convey("Given a job that never settles", t, func() {
		z := newZoltarServer()
		defer z.close()

		z.handle("/api/job/2/", func(*http.Request) (int, any) {
			return http.StatusOK, map[string]any{"status": 2}
		})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)

		Convey("Then context cancellation aborts the wait", func() {
			job := conn.JobForURI(z.base() + "/api/job/2/")
			_, err := zoltar.BusyPollJob(ctx, job, 5*time.Millisecond)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})
}

func TestUploadForecastByName(t *testing.T) {
	Convey("Given a seeded tree and a settling upload job", t, func() {
		z := newZoltarServer()
		defer z.close()
		ctx := context.Background()

		z.handle("/api/projects/", func(*http.Request) (int, any) {
			return http.StatusOK, []map[string]any{
				projectDoc(z.base(), 3, "Docs Example Project", true),
			}
		})
		z.handle("/api/project/3/models/", func(*http.Request) (int, any) {
			return http.StatusOK, []map[string]any{
				{"url": z.base() + "/api/model/5/", "name": "docs forecast model"},
			}
		})
		z.handle("/api/model/5/forecasts/", func(r *http.Request) (int, any) {
			if r.Method == http.MethodPost {
				return http.StatusOK, map[string]any{"url": z.base() + "/api/job/2/"}
			}
			return http.StatusOK, []map[string]any{}
		})
		z.handle("/api/job/2/", func(*http.Request) (int, any) {
			return http.StatusOK, map[string]any{"status": 4}
		})
		conn, err := z.connect(ctx)
		So(err, ShouldBeNil)

		set := &predictions.Set{Predictions: []predictions.Entry{
			{Unit: "01", Target: "1 wk ahead", Prediction: predictions.Point{Value: 2.1}},
		}}

		Convey("When the set is uploaded by name", func() {
			job, err := zoltar.UploadForecast(ctx, conn, set, "f.json",
				"Docs Example Project", "docs forecast model",
				"2020-05-04", "", time.Millisecond)

			Convey("Then the job reports success", func() {
				So(err, ShouldBeNil)
				status, err := job.Status(ctx)
				So(err, ShouldBeNil)
				So(status, ShouldEqual, zoltar.StatusSuccess)
				So(z.count("POST", "/api/model/5/forecasts/"), ShouldEqual, 1)
			})
		})
	})
}
