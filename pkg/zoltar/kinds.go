package zoltar

import (
	"context"
)

// Unit represents one forecast unit (a location in most projects).
type Unit struct {
	resource
}

var unitDisplayFields = []string{"name"} //nolint:gochecknoglobals // static display field list

func newUnit(conn *Connection, uri string, snapshot map[string]any) *Unit {
	return &Unit{resource{conn: conn, uri: uri, snapshot: snapshot}}
}

func (u *Unit) String() string {
	return u.describe("Unit", unitDisplayFields)
}

func (u *Unit) Name(ctx context.Context) (string, error) {
	return u.stringField(ctx, "name")
}

// Target represents one prediction target.
type Target struct {
	resource
}

var targetDisplayFields = []string{"name", "type", "is_step_ahead", "step_ahead_increment", "unit"} //nolint:gochecknoglobals // static display field list

func newTarget(conn *Connection, uri string, snapshot map[string]any) *Target {
	return &Target{resource{conn: conn, uri: uri, snapshot: snapshot}}
}

func (t *Target) String() string {
	return t.describe("Target", targetDisplayFields)
}

func (t *Target) Name(ctx context.Context) (string, error) {
	return t.stringField(ctx, "name")
}

func (t *Target) Type(ctx context.Context) (string, error) {
	return t.stringField(ctx, "type")
}

func (t *Target) IsStepAhead(ctx context.Context) (bool, error) {
	return t.boolField(ctx, "is_step_ahead")
}

func (t *Target) StepAheadIncrement(ctx context.Context) (int, error) {
	return t.intField(ctx, "step_ahead_increment")
}

func (t *Target) Unit(ctx context.Context) (string, error) {
	return t.stringField(ctx, "unit")
}

// TimeZero represents the time point a forecast is anchored to.
type TimeZero struct {
	resource
}

var timeZeroDisplayFields = []string{"timezero_date", "data_version_date", "is_season_start", "season_name"} //nolint:gochecknoglobals // static display field list

func newTimeZero(conn *Connection, uri string, snapshot map[string]any) *TimeZero {
	return &TimeZero{resource{conn: conn, uri: uri, snapshot: snapshot}}
}

func (tz *TimeZero) String() string {
	return tz.describe("TimeZero", timeZeroDisplayFields)
}

func (tz *TimeZero) TimeZeroDate(ctx context.Context) (string, error) {
	return tz.stringField(ctx, "timezero_date")
}

// DataVersionDate returns the empty string when the server reports null.
func (tz *TimeZero) DataVersionDate(ctx context.Context) (string, error) {
	return tz.stringField(ctx, "data_version_date")
}

func (tz *TimeZero) IsSeasonStart(ctx context.Context) (bool, error) {
	return tz.boolField(ctx, "is_season_start")
}

func (tz *TimeZero) SeasonName(ctx context.Context) (string, error) {
	return tz.stringField(ctx, "season_name")
}
