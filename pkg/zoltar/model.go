package zoltar

import (
	"context"
	"fmt"
	"io"

	"github.com/BrettBoval/zoltpy/pkg/metrics"
)

// Model represents a forecast model, and is the entry point for listing its
// forecasts as well as uploading new ones.
type Model struct {
	resource
}

var modelDisplayFields = []string{"name"} //nolint:gochecknoglobals // static display field list

func newModel(conn *Connection, uri string, snapshot map[string]any) *Model {
	return &Model{resource{conn: conn, uri: uri, snapshot: snapshot}}
}

func (m *Model) String() string {
	return m.describe("Model", modelDisplayFields)
}

func (m *Model) Name(ctx context.Context) (string, error) {
	return m.stringField(ctx, "name")
}

// Forecasts lists the model's forecasts. After uploading a new forecast this
// list only reflects it once the model has been refreshed.
func (m *Model) Forecasts(ctx context.Context) ([]*Forecast, error) {
	return children(ctx, m.conn, m.uri+"forecasts/", newForecast)
}

// ForecastForID builds an unfetched proxy for the forecast with the given
// identity.
func (m *Model) ForecastForID(id int64) *Forecast {
	return newForecast(m.conn, fmt.Sprintf("%s/api/forecast/%d/", m.conn.host, id), nil)
}

// UploadForecast posts the forecast data in interchange JSON form along with
// its timezero metadata. Data is read from r; source names the original
// file. dataVersionDate may be empty. The returned job proxy is uncached;
// its status must be polled via Refresh (see BusyPollJob).
func (m *Model) UploadForecast(ctx context.Context, r io.Reader, source, timezeroDate, dataVersionDate string) (*Job, error) {
	fields := map[string]string{"timezero_date": timezeroDate}
	if dataVersionDate != "" {
		fields["data_version_date"] = dataVersionDate
	}
	js, err := m.conn.postMultipart(ctx, m.uri+"forecasts/", fields, "data_file", source, r)
	if err != nil {
		return nil, err
	}
	uri, err := childURI(js)
	if err != nil {
		return nil, fmt.Errorf("upload to %s: %w", m.uri, err)
	}
	metrics.RecordUpload()
	// Deliberately uncached: the job state moves server-side immediately.
	return newJob(m.conn, uri, nil), nil
}
