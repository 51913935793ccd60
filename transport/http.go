// Package transport holds the wire collaborators a client.Client sends
// through. None of them sign or decode anything.
package transport

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/danthegoodman1/CloudConnect/gologger"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/http2"
)

var logger = gologger.NewLogger()

type Options struct {
	// Timeout bounds a whole exchange, 0 means no limit
	Timeout time.Duration
	// TLSConfig is cloned, nil uses the system roots
	TLSConfig *tls.Config
}

// NewHTTPClient returns a pooled client that negotiates HTTP/2 over TLS and
// falls back to HTTP/1.1.
func NewHTTPClient(opts Options) (*http.Client, error) {
	t1 := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if opts.TLSConfig != nil {
		t1.TLSClientConfig = opts.TLSConfig.Clone()
	}
	if err := http2.ConfigureTransport(t1); err != nil {
		return nil, fmt.Errorf("error in http2.ConfigureTransport: %w", err)
	}

	return &http.Client{Transport: t1, Timeout: opts.Timeout}, nil
}

// NewHTTP3Client returns a client speaking HTTP/3 over QUIC. Close the
// returned closer to release the UDP sockets.
func NewHTTP3Client(opts Options) (*http.Client, io.Closer) {
	rt := &http3.RoundTripper{}
	if opts.TLSConfig != nil {
		rt.TLSClientConfig = opts.TLSConfig.Clone()
	}
	return &http.Client{Transport: rt, Timeout: opts.Timeout}, rt
}
