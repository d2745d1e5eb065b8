package zoltar

import (
	"net/http"
	"time"

	"github.com/BrettBoval/zoltpy/pkg/logger"
)

// Option applies a configuration option to the Connection.
type Option func(*Connection)

// WithHTTPClient sets the underlying HTTP transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Connection) {
		if client != nil {
			c.httpc = client
		}
	}
}

// WithTokenTTL sets the assumed bearer-token lifetime. With the zero default
// the lifetime is treated as unknown and every authenticated call renews the
// token first. The server does not advertise its token lifetime, so a
// non-zero TTL is the caller's claim, not a protocol fact.
func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Connection) {
		if ttl > 0 {
			c.tokenTTL = ttl
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log logger.Logger) Option {
	return func(c *Connection) {
		if log != nil {
			c.log = log
		}
	}
}
