package zoltar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/BrettBoval/zoltpy/pkg/logger"
	"github.com/BrettBoval/zoltpy/pkg/metrics"
	"github.com/BrettBoval/zoltpy/pkg/predictions"
)

// Higher-level helpers that address resources by name instead of walking the
// proxy tree by hand.

// ProjectByName finds the project with the given name.
func ProjectByName(ctx context.Context, conn *Connection, name string) (*Project, error) {
	projects, err := conn.Projects(ctx)
	if err != nil {
		return nil, err
	}
	for _, project := range projects {
		projectName, err := project.Name(ctx)
		if err != nil {
			return nil, err
		}
		if projectName == name {
			return project, nil
		}
	}
	return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
}

// ModelByName finds the model with the given name inside the project.
func ModelByName(ctx context.Context, project *Project, name string) (*Model, error) {
	models, err := project.Models(ctx)
	if err != nil {
		return nil, err
	}
	for _, model := range models {
		modelName, err := model.Name(ctx)
		if err != nil {
			return nil, err
		}
		if modelName == name {
			return model, nil
		}
	}
	return nil, fmt.Errorf("model %q in %s: %w", name, project.URI(), ErrNotFound)
}

// ForecastForTimeZero finds the model's forecast for the given timezero
// date (YYYY-MM-DD).
func ForecastForTimeZero(ctx context.Context, model *Model, timezeroDate string) (*Forecast, error) {
	forecasts, err := model.Forecasts(ctx)
	if err != nil {
		return nil, err
	}
	for _, forecast := range forecasts {
		date, err := forecast.TimeZeroDate(ctx)
		if err != nil {
			return nil, err
		}
		if date == timezeroDate {
			return forecast, nil
		}
	}
	return nil, fmt.Errorf("forecast for timezero %s in %s: %w", timezeroDate, model.URI(), ErrNotFound)
}

// DownloadForecast fetches the prediction data of the forecast addressed by
// project, model, and timezero names.
func DownloadForecast(ctx context.Context, conn *Connection, projectName, modelName, timezeroDate string) (*predictions.Set, error) {
	project, err := ProjectByName(ctx, conn, projectName)
	if err != nil {
		return nil, err
	}
	model, err := ModelByName(ctx, project, modelName)
	if err != nil {
		return nil, err
	}
	forecast, err := ForecastForTimeZero(ctx, model, timezeroDate)
	if err != nil {
		return nil, err
	}
	return forecast.Data(ctx)
}

// DeleteForecast removes the forecast addressed by project, model, and
// timezero names. A missing forecast is not an error.
func DeleteForecast(ctx context.Context, conn *Connection, projectName, modelName, timezeroDate string) error {
	project, err := ProjectByName(ctx, conn, projectName)
	if err != nil {
		return err
	}
	model, err := ModelByName(ctx, project, modelName)
	if err != nil {
		return err
	}
	forecast, err := ForecastForTimeZero(ctx, model, timezeroDate)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Named("zoltar").Info(ctx, "no existing forecast to delete",
				logger.String("model", model.URI()),
				logger.String("timezero", timezeroDate))
			return nil
		}
		return err
	}
	return forecast.Delete(ctx)
}

// UploadForecast serializes the set to interchange JSON, uploads it to the
// model addressed by name, and polls the resulting job until it settles.
// The source string names the original file for the server's records.
func UploadForecast(ctx context.Context, conn *Connection, set *predictions.Set,
	source, projectName, modelName, timezeroDate, dataVersionDate string,
	pollInterval time.Duration) (*Job, error) {
	project, err := ProjectByName(ctx, conn, projectName)
	if err != nil {
		return nil, err
	}
	model, err := ModelByName(ctx, project, modelName)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encode forecast: %w", err)
	}
	job, err := model.UploadForecast(ctx, bytes.NewReader(body), source, timezeroDate, dataVersionDate)
	if err != nil {
		return nil, err
	}
	return BusyPollJob(ctx, job, pollInterval)
}

// BusyPollJob refreshes the job until it reports SUCCESS or FAILED, waiting
// interval between polls. A failed job returns an error carrying the
// server's failure message. Context cancellation aborts the wait.
func BusyPollJob(ctx context.Context, job *Job, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = time.Second
	}
	log := logger.Named("zoltar")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		metrics.RecordJobPoll()
		status, err := job.Status(ctx)
		if err != nil {
			return nil, err
		}
		log.Debug(ctx, "upload job status",
			logger.String("job", job.URI()),
			logger.String("status", status.String()))

		switch status {
		case StatusSuccess:
			return job, nil
		case StatusFailed:
			msg, msgErr := job.FailureMessage(ctx)
			if msgErr != nil {
				msg = msgErr.Error()
			}
			return nil, fmt.Errorf("upload job %s failed: %s", job.URI(), msg)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if _, err := job.Refresh(ctx); err != nil {
			return nil, err
		}
	}
}
