// Package webclient is the HTTP transport shared by the statute API client and
// the notification channels.
package webclient

import (
	"context"
	"net/http"
	"time"
)

type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Get(ctx context.Context, url string) (*Response, error)

	Close() error
}

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

const (
	// DefaultTimeout bounds every request to the statute service.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent is sent when the config names none.
	DefaultUserAgent = "lawtrack"
	// DefaultMaxBodyBytes caps a response body. The largest codes served by
	// the statute service are a few megabytes of XML.
	DefaultMaxBodyBytes = 32 << 20
)

// Config tunes the client.
type Config struct {
	// Backend must be empty or "nethttp".
	Backend      string
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}
