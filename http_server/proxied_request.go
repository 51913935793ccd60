package http_server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// headers that belong to the incoming signature or connection
var unforwardedHeaders = []string{
	"Authorization",
	"X-Amz-Date",
	"X-Amz-Security-Token",
	"X-Amz-Content-Sha256",
	"X-Amz-Decoded-Content-Length",
	"Content-Length",
	"Connection",
	"Host",
}

// newProxiedRequest rebuilds the incoming request against upstream. An
// aws-chunked body is decoded first, the proxy signs the payload again.
func newProxiedRequest(c echo.Context, upstream *url.URL) (*http.Request, error) {
	r := c.Request()
	body, err := readObjectBody(c)
	if err != nil {
		return nil, err
	}

	query := r.URL.Query()
	for name := range query {
		if strings.HasPrefix(name, "X-Amz-") {
			query.Del(name)
		}
	}

	target := *upstream
	target.Path = strings.TrimSuffix(upstream.Path, "/") + r.URL.Path
	if r.URL.RawPath != "" {
		target.RawPath = strings.TrimSuffix(upstream.EscapedPath(), "/") + r.URL.RawPath
	}
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error in http.NewRequestWithContext: %w", err)
	}

	for header, vals := range r.Header {
		if lo.ContainsBy(unforwardedHeaders, func(h string) bool { return strings.EqualFold(h, header) }) {
			continue
		}
		req.Header[header] = vals
	}
	if encoding := strings.TrimPrefix(strings.TrimPrefix(req.Header.Get("Content-Encoding"), "aws-chunked"), ","); encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	} else {
		req.Header.Del("Content-Encoding")
	}
	return req, nil
}

// copyResponse streams an upstream response to the client, headers first
func copyResponse(w *echo.Response, res *http.Response) error {
	defer res.Body.Close()
	for k, vv := range res.Header {
		w.Header()[k] = vv
	}
	w.WriteHeader(res.StatusCode)
	if _, err := io.Copy(w, res.Body); err != nil {
		return fmt.Errorf("error in io.Copy of response body: %w", err)
	}
	return nil
}
