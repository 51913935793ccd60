package transport

import (
	"net/http"
	"net/http/httptest"

	"github.com/danthegoodman1/CloudConnect/client"
)

// Handler serves requests with h in process, so a client can talk to a fake
// without opening a socket.
func Handler(h http.Handler) client.Transport {
	return client.TransportFunc(func(req *http.Request) (*http.Response, error) {
		in := req.Clone(req.Context())
		if in.Host == "" {
			in.Host = in.URL.Host
		}
		in.RequestURI = in.URL.RequestURI()
		if in.Body == nil {
			in.Body = http.NoBody
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, in)
		return rec.Result(), nil
	})
}
