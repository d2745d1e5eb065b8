package zoltar

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// resource is the shared proxy state for one remote object: its locator, an
// optional cached snapshot of its JSON representation, and the owning
// Connection. A nil snapshot means unfetched; fetching is the only way in,
// and Refresh re-enters the cached state from either one.
//
// The snapshot is a read-through cache, not write-through: nothing here
// pushes local mutations back, and it is never invalidated automatically.
// After any action known to change server state, the owner must Refresh the
// affected proxies.
type resource struct {
	conn     *Connection
	uri      string
	snapshot map[string]any
}

// IDForURI resolves a locator to the trailing integer identity, ignoring
// empty path segments: ".../api/forecast/71/" -> 71, with or without the
// trailing slash.
func IDForURI(uri string) (int64, error) {
	segments := strings.Split(uri, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == "" {
			continue
		}
		id, err := strconv.ParseInt(segments[i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("locator %q: trailing segment %q is not an integer id", uri, segments[i])
		}
		return id, nil
	}
	return 0, fmt.Errorf("locator %q has no path segments", uri)
}

// URI returns the resource locator.
func (r *resource) URI() string { return r.uri }

// ID returns the integer identity encoded in the locator. It never touches
// the snapshot, so it is available before the first fetch.
func (r *resource) ID() (int64, error) {
	return IDForURI(r.uri)
}

// JSON returns the cached snapshot, fetching it first if none is cached yet.
func (r *resource) JSON(ctx context.Context) (map[string]any, error) {
	if r.snapshot != nil {
		return r.snapshot, nil
	}
	return r.Refresh(ctx)
}

// Refresh unconditionally re-fetches the snapshot. A failed fetch leaves any
// previously cached snapshot in place.
func (r *resource) Refresh(ctx context.Context) (map[string]any, error) {
	js, err := r.conn.JSONForURI(ctx, r.uri)
	if err != nil {
		return nil, err
	}
	r.snapshot = js
	return js, nil
}

// Delete removes the remote object. This is terminal: the locator is invalid
// afterward and the proxy must not be used again.
func (r *resource) Delete(ctx context.Context) error {
	return r.conn.deleteURI(ctx, r.uri)
}

// describe renders the proxy for debugging: kind, locator, id, then the
// values of the kind's display fields when a snapshot is cached. It never
// fetches.
func (r *resource) describe(kind string, displayFields []string) string {
	parts := []string{kind, r.uri}
	if id, err := IDForURI(r.uri); err == nil {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	if r.snapshot != nil {
		for _, key := range displayFields {
			if val, ok := r.snapshot[key]; ok {
				parts = append(parts, fmt.Sprint(val))
			}
		}
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Typed snapshot accessors. Each triggers the lazy fetch when no snapshot is
// cached, and reports absent or mistyped fields as errors rather than zero
// values.

func (r *resource) stringField(ctx context.Context, key string) (string, error) {
	js, err := r.JSON(ctx)
	if err != nil {
		return "", err
	}
	val, ok := js[key]
	if !ok {
		return "", fmt.Errorf("%s: no %q field in snapshot", r.uri, key)
	}
	if val == nil {
		return "", nil // JSON null renders as the empty string
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s: field %q is %T, want string", r.uri, key, val)
	}
	return s, nil
}

func (r *resource) boolField(ctx context.Context, key string) (bool, error) {
	js, err := r.JSON(ctx)
	if err != nil {
		return false, err
	}
	val, ok := js[key]
	if !ok {
		return false, fmt.Errorf("%s: no %q field in snapshot", r.uri, key)
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("%s: field %q is %T, want bool", r.uri, key, val)
	}
	return b, nil
}

func (r *resource) intField(ctx context.Context, key string) (int, error) {
	js, err := r.JSON(ctx)
	if err != nil {
		return 0, err
	}
	val, ok := js[key]
	if !ok {
		return 0, fmt.Errorf("%s: no %q field in snapshot", r.uri, key)
	}
	f, ok := val.(float64) // JSON numbers decode as float64
	if !ok {
		return 0, fmt.Errorf("%s: field %q is %T, want number", r.uri, key, val)
	}
	return int(f), nil
}

// children fetches a child list endpoint and hands each element to build.
// Navigation is always a fresh list fetch; only the children are pre-seeded
// with their snapshots from the list response, saving one round trip each.
func children[T any](ctx context.Context, conn *Connection, listURI string,
	build func(conn *Connection, uri string, snapshot map[string]any) T) ([]T, error) {
	list, err := conn.jsonListForURI(ctx, listURI)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(list))
	for _, js := range list {
		uri, err := childURI(js)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", listURI, err)
		}
		out = append(out, build(conn, uri, js))
	}
	return out, nil
}
