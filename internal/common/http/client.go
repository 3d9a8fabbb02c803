// internal/common/http/client.go
package http

import (
	"net/http"
	"time"
)

// NewClient returns an HTTP client for outbound provider calls. The timeout
// bounds a single request; callers still pass a context for cancellation.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
}
