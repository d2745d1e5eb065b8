// Package zoltar is a client for a Zoltar forecast repository. It exposes the
// server's resources (projects, models, forecasts, upload jobs) as a lazily
// cached proxy tree rooted at a Connection.
//
// A note on locators: every resource locator carries a trailing slash. The
// only exception is the host passed to New, which must not have one. This
// matches the Django REST framework convention the server follows.
//
// A Connection and the proxies it produces are not safe for concurrent use;
// callers sharing one Connection must serialize their access. The session
// token is shared mutable state across all proxies of a Connection, and any
// re-authentication replaces it for all of them.
package zoltar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/BrettBoval/zoltpy/pkg/logger"
	"github.com/BrettBoval/zoltpy/pkg/metrics"
)

// Default transport timeout. The server streams nothing; every exchange is a
// single request/response.
const defaultHTTPTimeout = 30 * time.Second

// How much response body to carry in error messages.
const errBodyLimit = 512

// Connection is the process-wide entry point to one Zoltar server. It owns
// the Session and performs authenticated fetches on behalf of all resource
// proxies created from it.
type Connection struct {
	host     string // no trailing slash
	httpc    *http.Client
	log      logger.Logger
	tokenTTL time.Duration

	username string
	password string
	session  *Session
}

// New creates a Connection to the given host. The host must not carry a
// trailing slash. No network traffic happens until Authenticate.
func New(host string, opts ...Option) *Connection {
	c := &Connection{
		host:  host,
		httpc: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("zoltar")
	}
	return c
}

// Host returns the server base URL.
func (c *Connection) Host() string { return c.host }

// Session returns the current session, or nil before Authenticate.
func (c *Connection) Session() *Session { return c.session }

// Authenticate stores the credentials and exchanges them for a token.
func (c *Connection) Authenticate(ctx context.Context, username, password string) error {
	c.username, c.password = username, password
	session, err := newSession(ctx, c)
	if err != nil {
		return err
	}
	c.session = session
	return nil
}

// reauthenticateIfNeeded renews the token with the stored credentials when
// the session reports expiry. Every authenticated request path goes through
// here first, since the token is bearer-style and time-limited.
func (c *Connection) reauthenticateIfNeeded(ctx context.Context) error {
	if c.session == nil {
		return fmt.Errorf("connection to %s: %w: call Authenticate first", c.host, ErrPrecondition)
	}
	if !c.session.IsExpired() {
		return nil
	}
	c.log.Debug(ctx, "token expired; re-authenticating", logger.String("host", c.host))
	metrics.RecordReauthentication()
	return c.Authenticate(ctx, c.username, c.password)
}

// Projects is the single root entry point into the resource tree. It fetches
// the project list and wraps each element pre-populated with its snapshot.
func (c *Connection) Projects(ctx context.Context) ([]*Project, error) {
	list, err := c.jsonListForURI(ctx, c.host+"/api/projects/")
	if err != nil {
		return nil, err
	}
	out := make([]*Project, 0, len(list))
	for _, js := range list {
		uri, err := childURI(js)
		if err != nil {
			return nil, fmt.Errorf("project list from %s: %w", c.host, err)
		}
		out = append(out, newProject(c, uri, js))
	}
	return out, nil
}

// CreateProject creates a project from the passed configuration and returns
// its proxy pre-seeded with the server's response.
func (c *Connection) CreateProject(ctx context.Context, config map[string]any) (*Project, error) {
	js, err := c.postJSON(ctx, c.host+"/api/projects/", map[string]any{"project_config": config})
	if err != nil {
		return nil, err
	}
	uri, err := childURI(js)
	if err != nil {
		return nil, fmt.Errorf("create project on %s: %w", c.host, err)
	}
	return newProject(c, uri, js), nil
}

// Proxy constructors for callers holding a raw locator, e.g. one stored
// from a previous run. Each returns an unfetched proxy; no network traffic
// happens until an attribute is read.

func (c *Connection) ProjectForURI(uri string) *Project { return newProject(c, uri, nil) }

func (c *Connection) ModelForURI(uri string) *Model { return newModel(c, uri, nil) }

func (c *Connection) ForecastForURI(uri string) *Forecast { return newForecast(c, uri, nil) }

func (c *Connection) JobForURI(uri string) *Job { return newJob(c, uri, nil) }

// JSONForURI issues an authenticated GET for the locator and decodes the
// response as a JSON object.
func (c *Connection) JSONForURI(ctx context.Context, uri string) (map[string]any, error) {
	body, err := c.getAuthenticated(ctx, uri)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", uri, err)
	}
	return out, nil
}

// jsonListForURI is JSONForURI for list endpoints.
func (c *Connection) jsonListForURI(ctx context.Context, uri string) ([]map[string]any, error) {
	body, err := c.getAuthenticated(ctx, uri)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", uri, err)
	}
	return out, nil
}

// getAuthenticated renews the token if needed and GETs the locator,
// requiring a 200.
func (c *Connection) getAuthenticated(ctx context.Context, uri string) ([]byte, error) {
	hdr, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}
	status, body, err := c.do(ctx, http.MethodGet, uri, hdr, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, remoteError(http.MethodGet, uri, http.StatusOK, status, body)
	}
	return body, nil
}

// postJSON renews the token if needed and POSTs a JSON payload, requiring a
// 200 and decoding the response object.
func (c *Connection) postJSON(ctx context.Context, uri string, payload any) (map[string]any, error) {
	hdr, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload for %s: %w", uri, err)
	}
	hdr.Set("Content-Type", "application/json")
	status, body, err := c.do(ctx, http.MethodPost, uri, hdr, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, remoteError(http.MethodPost, uri, http.StatusOK, status, body)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", uri, err)
	}
	return out, nil
}

// postMultipart renews the token if needed and POSTs a multipart form with
// the given fields plus one JSON file part, requiring a 200.
func (c *Connection) postMultipart(ctx context.Context, uri string, fields map[string]string,
	fileField, filename string, file io.Reader) (map[string]any, error) {
	hdr, err := c.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, val := range fields {
		if err := mw.WriteField(key, val); err != nil {
			return nil, fmt.Errorf("multipart field %s: %w", key, err)
		}
	}
	ph := make(textproto.MIMEHeader)
	ph.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename))
	ph.Set("Content-Type", "application/json")
	pw, err := mw.CreatePart(ph)
	if err != nil {
		return nil, fmt.Errorf("multipart part %s: %w", fileField, err)
	}
	if _, err := io.Copy(pw, file); err != nil {
		return nil, fmt.Errorf("multipart copy %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipart close: %w", err)
	}

	hdr.Set("Content-Type", mw.FormDataContentType())
	status, body, err := c.do(ctx, http.MethodPost, uri, hdr, &buf)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, remoteError(http.MethodPost, uri, http.StatusOK, status, body)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", uri, err)
	}
	return out, nil
}

// deleteURI renews the token if needed and DELETEs the locator, requiring a
// 204.
func (c *Connection) deleteURI(ctx context.Context, uri string) error {
	hdr, err := c.authHeader(ctx)
	if err != nil {
		return err
	}
	status, body, err := c.do(ctx, http.MethodDelete, uri, hdr, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return remoteError(http.MethodDelete, uri, http.StatusNoContent, status, body)
	}
	return nil
}

// authHeader runs the expiry check and builds the bearer header.
func (c *Connection) authHeader(ctx context.Context) (http.Header, error) {
	if err := c.reauthenticateIfNeeded(ctx); err != nil {
		return nil, err
	}
	hdr := http.Header{}
	hdr.Set("Accept", "application/json; indent=4")
	hdr.Set("Authorization", "JWT "+c.session.token)
	return hdr, nil
}

// do issues one HTTP exchange and returns the status and full body. Errors
// carry method and locator; status interpretation is the caller's.
func (c *Connection) do(ctx context.Context, method, uri string, hdr http.Header, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, uri, err)
	}
	for key, vals := range hdr {
		for _, val := range vals {
			req.Header.Add(key, val)
		}
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	c.log.Debug(ctx, "request",
		logger.String("method", method),
		logger.String("uri", uri),
		logger.String("request_id", requestID))

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.RecordRequest(method, "error", time.Since(start).Seconds())
		return 0, nil, fmt.Errorf("%s %s: %w", method, uri, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side already consumed

	respBody, err := io.ReadAll(resp.Body)
	metrics.RecordRequest(method, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: read body: %w", method, uri, err)
	}
	return resp.StatusCode, respBody, nil
}

// remoteError wraps ErrRemote with enough context to diagnose a bad status
// without re-running the request.
func remoteError(method, uri string, want, got int, body []byte) error {
	return fmt.Errorf("%s %s: %w: want %d got %d: %s",
		method, uri, ErrRemote, want, got, truncate(body))
}

func truncate(body []byte) string {
	if len(body) > errBodyLimit {
		return string(body[:errBodyLimit]) + "..."
	}
	return string(body)
}

// childURI extracts the locator of a list element or response object.
func childURI(js map[string]any) (string, error) {
	uri, ok := js["url"].(string)
	if !ok || uri == "" {
		return "", fmt.Errorf("%w: element has no url field", ErrRemote)
	}
	return uri, nil
}
