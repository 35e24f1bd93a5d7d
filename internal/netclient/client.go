package netclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"stenokb/internal/config"
)

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// New builds the client for the forward endpoint. Strokes go to a single
// host in small bursts, so a few warm connections are enough.
func New(cfg config.Config) (*http.Client, *http.Transport) {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     5 * time.Minute,
	}
	if !cfg.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.EnableHTTP2 {
		if err := http2.ConfigureTransport(tr); err != nil && cfg.DEBUG {
			fmt.Printf("[forward] http2 disabled: %v\n", err)
		}
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Transport: tr, Timeout: timeout}, tr
}
