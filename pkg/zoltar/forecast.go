package zoltar

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/BrettBoval/zoltpy/pkg/predictions"
)

// Forecast represents one uploaded forecast for a (model, timezero) pair.
type Forecast struct {
	resource
}

var forecastDisplayFields = []string{"source", "created_at"} //nolint:gochecknoglobals // static display field list

func newForecast(conn *Connection, uri string, snapshot map[string]any) *Forecast {
	return &Forecast{resource{conn: conn, uri: uri, snapshot: snapshot}}
}

func (f *Forecast) String() string {
	return f.describe("Forecast", forecastDisplayFields)
}

func (f *Forecast) Source(ctx context.Context) (string, error) {
	return f.stringField(ctx, "source")
}

func (f *Forecast) CreatedAt(ctx context.Context) (string, error) {
	return f.stringField(ctx, "created_at")
}

// TimeZero returns the proxy for the forecast's timezero.
func (f *Forecast) TimeZero(ctx context.Context) (*TimeZero, error) {
	uri, err := f.stringField(ctx, "time_zero")
	if err != nil {
		return nil, err
	}
	return newTimeZero(f.conn, uri, nil), nil
}

// TimeZeroDate returns the forecast's timezero date. List responses carry it
// inline; otherwise it is read through the timezero proxy.
func (f *Forecast) TimeZeroDate(ctx context.Context) (string, error) {
	js, err := f.JSON(ctx)
	if err != nil {
		return "", err
	}
	if date, ok := js["timezero_date"].(string); ok {
		return date, nil
	}
	tz, err := f.TimeZero(ctx)
	if err != nil {
		return "", err
	}
	return tz.TimeZeroDate(ctx)
}

// Data fetches the forecast's prediction data in the interchange format.
// The data locator comes from the snapshot, so this may trigger the lazy
// fetch first.
func (f *Forecast) Data(ctx context.Context) (*predictions.Set, error) {
	dataURI, err := f.stringField(ctx, "forecast_data")
	if err != nil {
		return nil, err
	}
	body, err := f.conn.getAuthenticated(ctx, dataURI)
	if err != nil {
		return nil, err
	}
	var set predictions.Set
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode forecast data %s: %w", dataURI, err)
	}
	return &set, nil
}
