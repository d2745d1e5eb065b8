package zoltar

import (
	"context"
	"fmt"
	"strconv"
)

// JobStatus enumerates the upload job lifecycle. The wire form is an integer
// 0-5; anything outside that range is a protocol violation.
type JobStatus int

const (
	StatusPending JobStatus = iota
	StatusCloudFileUploaded
	StatusQueued
	StatusCloudFileDownloaded
	StatusSuccess
	StatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusCloudFileUploaded:
		return "CLOUD_FILE_UPLOADED"
	case StatusQueued:
		return "QUEUED"
	case StatusCloudFileDownloaded:
		return "CLOUD_FILE_DOWNLOADED"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(s)) + ")"
	}
}

// JobStatusFromCode maps a wire status code onto the enumeration.
func JobStatusFromCode(code int) (JobStatus, error) {
	if code < int(StatusPending) || code > int(StatusFailed) {
		return 0, fmt.Errorf("job status code %d: %w", code, ErrBadStatus)
	}
	return JobStatus(code), nil
}

// Job represents an upload file job. Upload responses return it uncached, so
// the first Status call fetches, and progress is observed by Refresh.
type Job struct {
	resource
}

var jobDisplayFields = []string{"status"} //nolint:gochecknoglobals // static display field list

func newJob(conn *Connection, uri string, snapshot map[string]any) *Job {
	return &Job{resource{conn: conn, uri: uri, snapshot: snapshot}}
}

func (j *Job) String() string {
	return j.describe("Job", jobDisplayFields)
}

// Status returns the job's current lifecycle state as of the cached
// snapshot, fetching it first if none is cached.
func (j *Job) Status(ctx context.Context) (JobStatus, error) {
	code, err := j.intField(ctx, "status")
	if err != nil {
		return 0, err
	}
	status, err := JobStatusFromCode(code)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", j.uri, err)
	}
	return status, nil
}

// OutputJSON returns the job's output section, e.g. the new forecast's id
// under "forecast_pk" once the job succeeds.
func (j *Job) OutputJSON(ctx context.Context) (map[string]any, error) {
	js, err := j.JSON(ctx)
	if err != nil {
		return nil, err
	}
	out, ok := js["output_json"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: no output_json section in snapshot", j.uri)
	}
	return out, nil
}

// FailureMessage returns the server's failure description, empty unless the
// job failed.
func (j *Job) FailureMessage(ctx context.Context) (string, error) {
	return j.stringField(ctx, "failure_message")
}
