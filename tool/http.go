package tool

import (
	"crypto/tls"
	"net/http"
)

// NewProbeHTTPClient creates an HTTP client for camera probing. Cameras are
// full of self-signed certificates, so verification is skipped. There is no
// client-level timeout: stream validation keeps the response body open and
// applies its own per-request context deadline instead.
func NewProbeHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 4,
			DisableKeepAlives:   true,
		},
	}
}
