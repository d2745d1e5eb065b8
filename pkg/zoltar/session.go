package zoltar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Session holds one bearer token obtained for the Connection's credentials.
type Session struct {
	conn       *Connection
	token      string
	obtainedAt time.Time
}

// newSession exchanges the connection's credentials for a token at the
// server's token endpoint.
func newSession(ctx context.Context, conn *Connection) (*Session, error) {
	uri := conn.host + "/api-token-auth/"
	form := url.Values{
		"username": {conn.username},
		"password": {conn.password},
	}
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := conn.do(ctx, http.MethodPost, uri, hdr, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("token exchange at %s: %w: want %d got %d: %s",
			uri, ErrAuthentication, http.StatusOK, status, truncate(body))
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("token exchange at %s: %w: %v", uri, ErrAuthentication, err)
	}
	if payload.Token == "" {
		return nil, fmt.Errorf("token exchange at %s: %w: empty token", uri, ErrAuthentication)
	}
	return &Session{conn: conn, token: payload.Token, obtainedAt: time.Now()}, nil
}

// Token returns the raw bearer token.
func (s *Session) Token() string { return s.token }

// IsExpired reports whether the token must be considered stale. With no
// configured TTL the lifetime is unknown, so every check reports expired and
// the next authenticated call renews the token. That trades an extra token
// exchange per call for always-correct credentials.
func (s *Session) IsExpired() bool {
	if s.conn.tokenTTL <= 0 {
		return true
	}
	return time.Since(s.obtainedAt) >= s.conn.tokenTTL
}
