package zoltar

import (
	"context"
	"fmt"
	"slices"
	"sort"
)

// Project represents a Zoltar project, and is the entry point for its
// models, units, targets, and timezeros.
type Project struct {
	resource
}

var projectDisplayFields = []string{"name", "is_public"} //nolint:gochecknoglobals // static display field list

// modelConfigKeys is the exact key set CreateModel requires: no more, no
// fewer.
var modelConfigKeys = []string{ //nolint:gochecknoglobals // fixed protocol key set
	"name", "abbreviation", "team_name", "description", "home_url", "aux_data_url",
}

func newProject(conn *Connection, uri string, snapshot map[string]any) *Project {
	return &Project{resource{conn: conn, uri: uri, snapshot: snapshot}}
}

func (p *Project) String() string {
	return p.describe("Project", projectDisplayFields)
}

func (p *Project) Name(ctx context.Context) (string, error) {
	return p.stringField(ctx, "name")
}

func (p *Project) IsPublic(ctx context.Context) (bool, error) {
	return p.boolField(ctx, "is_public")
}

func (p *Project) Description(ctx context.Context) (string, error) {
	return p.stringField(ctx, "description")
}

// Models lists the project's models. Like all navigation, this is a fresh
// list fetch; the returned proxies are pre-seeded from the list response.
func (p *Project) Models(ctx context.Context) ([]*Model, error) {
	return children(ctx, p.conn, p.uri+"models/", newModel)
}

// Units lists the project's units.
func (p *Project) Units(ctx context.Context) ([]*Unit, error) {
	return children(ctx, p.conn, p.uri+"units/", newUnit)
}

// Targets lists the project's targets.
func (p *Project) Targets(ctx context.Context) ([]*Target, error) {
	return children(ctx, p.conn, p.uri+"targets/", newTarget)
}

// TimeZeros lists the project's timezeros.
func (p *Project) TimeZeros(ctx context.Context) ([]*TimeZero, error) {
	return children(ctx, p.conn, p.uri+"timezeros/", newTimeZero)
}

// CreateModel creates a forecast model in this project. The config must
// contain exactly the keys name, abbreviation, team_name, description,
// home_url, and aux_data_url; anything else is rejected before any network
// call. The returned proxy is pre-seeded with the server's response.
func (p *Project) CreateModel(ctx context.Context, config map[string]string) (*Model, error) {
	if err := validateModelConfig(config); err != nil {
		return nil, err
	}
	js, err := p.conn.postJSON(ctx, p.uri+"models/", map[string]any{"model_config": config})
	if err != nil {
		return nil, err
	}
	id, ok := js["id"].(float64)
	if !ok {
		return nil, fmt.Errorf("create model in %s: %w: response has no id", p.uri, ErrRemote)
	}
	uri := fmt.Sprintf("%s/api/model/%d/", p.conn.host, int64(id))
	return newModel(p.conn, uri, js), nil
}

func validateModelConfig(config map[string]string) error {
	var missing, extra []string
	for _, key := range modelConfigKeys {
		if _, ok := config[key]; !ok {
			missing = append(missing, key)
		}
	}
	for key := range config {
		if !slices.Contains(modelConfigKeys, key) {
			extra = append(extra, key)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return fmt.Errorf("model config: %w: missing keys %v, extra keys %v", ErrValidation, missing, extra)
}
