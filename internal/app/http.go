package app

import (
	"net"
	"net/http"
	"time"
)

// newPageHTTPClient returns the transport shared by page fetches. Per-request
// deadlines come from fetch.Client, so the client-level timeout is only a
// backstop.
func newPageHTTPClient(maxPerHost int) *http.Client {
	if maxPerHost <= 0 {
		maxPerHost = 64
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   maxPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   2 * time.Minute,
	}
}
