package httpreq

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request when no client is injected.
const DefaultTimeout = 30 * time.Second

// NewClient returns a pooled HTTP client shared by all HTTP Request nodes.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
