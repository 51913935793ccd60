package sigv4

import (
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// ignoredHeaders are never part of a signature, intermediaries are free to change them
var ignoredHeaders = map[string]bool{
	"authorization":   true,
	"user-agent":      true,
	"x-amzn-trace-id": true,
	"expect":          true,
	"connection":      true,
}

type Header struct {
	Name  string
	Value string
}

// CanonicalRequest is the normalized form of a request that goes into the
// string to sign. Build one with BuildCanonicalRequest, it is never modified
// after that.
type CanonicalRequest struct {
	Method        string
	URI           string
	Query         string
	Headers       []Header
	SignedHeaders string
	PayloadHash   string
}

func (c CanonicalRequest) String() string {
	var sb strings.Builder
	sb.WriteString(c.Method + "\n")
	sb.WriteString(c.URI + "\n")
	sb.WriteString(c.Query + "\n")
	for _, h := range c.Headers {
		sb.WriteString(h.Name + ":" + h.Value + "\n")
	}
	sb.WriteString("\n") // the header block ends with an empty line
	sb.WriteString(c.SignedHeaders + "\n")
	sb.WriteString(c.PayloadHash)
	return sb.String()
}

// BuildCanonicalRequest canonicalizes req for the given service, signing every
// header present except the ignored ones.
func BuildCanonicalRequest(req *http.Request, service, payloadHash string) CanonicalRequest {
	return buildCanonicalRequest(req, service, payloadHash, nil)
}

// buildCanonicalRequest restricts the headers to only when it is non-nil,
// which is how a receiver rebuilds a request from the SignedHeaders it was given.
func buildCanonicalRequest(req *http.Request, service, payloadHash string, only []string) CanonicalRequest {
	headers := canonicalHeaders(req, only)
	return CanonicalRequest{
		Method:  strings.ToUpper(req.Method),
		URI:     canonicalURI(req.URL, service),
		Query:   canonicalQuery(req.URL.Query()),
		Headers: headers,
		SignedHeaders: strings.Join(lo.Map(headers, func(h Header, _ int) string {
			return h.Name
		}), ";"),
		PayloadHash: payloadHash,
	}
}

func canonicalHeaders(req *http.Request, only []string) []Header {
	values := map[string][]string{}
	for key, vals := range req.Header {
		name := strings.ToLower(strings.TrimSpace(key))
		if ignoredHeaders[name] || name == "host" || name == "content-length" {
			continue
		}
		values[name] = append(values[name], lo.Map(vals, func(v string, _ int) string {
			return collapseSpaces(v)
		})...)
	}

	values["host"] = []string{requestHost(req)}
	if req.ContentLength > 0 {
		values["content-length"] = []string{strconv.FormatInt(req.ContentLength, 10)}
	}

	names := lo.Keys(values)
	if only != nil {
		wanted := lo.SliceToMap(only, func(name string) (string, bool) {
			return strings.ToLower(name), true
		})
		names = lo.Filter(names, func(name string, _ int) bool {
			return wanted[name]
		})
		// a receiver may have lost a header that was declared as signed
		for name := range wanted {
			if _, ok := values[name]; !ok {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)

	return lo.Map(names, func(name string, _ int) Header {
		return Header{Name: name, Value: strings.Join(values[name], ",")}
	})
}

// requestHost returns the host that will be on the wire, without a default port
func requestHost(req *http.Request) string {
	host := req.Host
	if host == "" && req.URL != nil {
		host = req.URL.Host
	}
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return strings.TrimSpace(host)
	}
	scheme := ""
	if req.URL != nil {
		scheme = req.URL.Scheme
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return h
	}
	return host
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// canonicalURI encodes the path once for s3 and twice for every other service
func canonicalURI(u *url.URL, service string) string {
	var path string
	if service == "s3" {
		path = uriEncode(u.Path, false)
	} else {
		path = uriEncode(u.EscapedPath(), false)
	}
	if path == "" {
		return "/"
	}
	return path
}

func canonicalQuery(query url.Values) string {
	type pair struct{ k, v string }
	var pairs []pair
	for key, vals := range query {
		if key == "X-Amz-Signature" {
			continue
		}
		for _, val := range vals {
			pairs = append(pairs, pair{uriEncode(key, true), uriEncode(val, true)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k == pairs[j].k {
			return pairs[i].v < pairs[j].v
		}
		return pairs[i].k < pairs[j].k
	})
	return strings.Join(lo.Map(pairs, func(p pair, _ int) string {
		return p.k + "=" + p.v
	}), "&")
}

const upperHex = "0123456789ABCDEF"

// uriEncode percent-encodes everything except the RFC 3986 unreserved characters
func uriEncode(s string, encodeSlash bool) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			sb.WriteByte(c)
		case c == '/' && !encodeSlash:
			sb.WriteByte(c)
		default:
			sb.WriteByte('%')
			sb.WriteByte(upperHex[c>>4])
			sb.WriteByte(upperHex[c&15])
		}
	}
	return sb.String()
}
