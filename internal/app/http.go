package app

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient returns the shared client for page loads and model calls.
// Per-call deadlines come from contexts; the client timeout is a backstop.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}
