package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danthegoodman1/CloudConnect/sigv4"
)

// SetBaseURI points relative action requests at a service endpoint. A path on
// the base URI is prefixed to the action path.
func SetBaseURI(base *url.URL) Filter {
	return func(next HandlerFunc) HandlerFunc {
		return func(req *http.Request) (*http.Response, error) {
			out := req.Clone(req.Context())
			out.URL.Scheme = base.Scheme
			out.URL.Host = base.Host
			out.URL.Path = joinPath(base.Path, req.URL.Path)
			if req.URL.RawPath != "" {
				out.URL.RawPath = joinPath(base.EscapedPath(), req.URL.RawPath)
			}
			out.Host = base.Host
			return next(out)
		}
	}
}

func joinPath(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// SignAWSRequests signs every request with the signer; the signer reads the
// credentials and the clock on each call.
func SignAWSRequests(signer sigv4.Signer) Filter {
	return func(next HandlerFunc) HandlerFunc {
		return func(req *http.Request) (*http.Response, error) {
			signed, err := signer.Sign(req)
			if err != nil {
				return nil, err
			}
			return next(signed)
		}
	}
}

func BasicAuth(user, password string) Filter {
	return func(next HandlerFunc) HandlerFunc {
		return func(req *http.Request) (*http.Response, error) {
			out := req.Clone(req.Context())
			out.SetBasicAuth(user, password)
			return next(out)
		}
	}
}

// SetHeader sets a header on every request unless the action already did
func SetHeader(name, value string) Filter {
	return func(next HandlerFunc) HandlerFunc {
		return func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(name) != "" {
				return next(req)
			}
			out := req.Clone(req.Context())
			out.Header.Set(name, value)
			return next(out)
		}
	}
}

// RequestLogging logs every request that reaches the transport. Headers are
// left out, they carry the signature.
func RequestLogging() Filter {
	return func(next HandlerFunc) HandlerFunc {
		return func(req *http.Request) (*http.Response, error) {
			l := invocationLogger(req.Context())
			start := time.Now()
			resp, err := next(req)
			if err != nil {
				l.Debug().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")
				return nil, err
			}
			l.Debug().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", resp.StatusCode).
				Dur("duration", time.Since(start)).
				Msg("request done")
			return resp, nil
		}
	}
}
