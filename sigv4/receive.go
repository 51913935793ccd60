package sigv4

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// VerifyPresigned checks a request authenticated through its query string, as
// produced by Presign. now is compared against X-Amz-Date + X-Amz-Expires.
func VerifyPresigned(req *http.Request, lookup SecretLookup, now time.Time) (AuthHeader, error) {
	query := req.URL.Query()
	if query.Get("X-Amz-Algorithm") != Algorithm {
		return AuthHeader{}, ErrMalformedAuth
	}
	credential, err := parseCredential(query.Get("X-Amz-Credential"))
	if err != nil {
		return AuthHeader{}, err
	}
	parsed := AuthHeader{
		Credential:    credential,
		SignedHeaders: strings.Split(query.Get("X-Amz-SignedHeaders"), ";"),
		Signature:     query.Get("X-Amz-Signature"),
	}
	if parsed.Signature == "" || query.Get("X-Amz-SignedHeaders") == "" {
		return parsed, ErrMalformedAuth
	}

	t, err := time.Parse(TimeFormat, query.Get("X-Amz-Date"))
	if err != nil {
		return parsed, fmt.Errorf("error parsing X-Amz-Date: %w", ErrMalformedAuth)
	}
	if credential.Scope.Date != t.Format(DateFormat) {
		return parsed, ErrScopeMismatch
	}
	expires, err := strconv.Atoi(query.Get("X-Amz-Expires"))
	if err != nil {
		return parsed, fmt.Errorf("error parsing X-Amz-Expires: %w", ErrMalformedAuth)
	}
	if expires < 1 || expires > int(maxPresignExpiry/time.Second) {
		return parsed, ErrInvalidExpiration
	}
	if now.After(t.Add(time.Duration(expires) * time.Second)) {
		return parsed, ErrExpired
	}

	secret, err := lookup(req.Context(), credential.KeyID)
	if err != nil {
		return parsed, fmt.Errorf("error looking up key: %w", err)
	}

	scope := credential.Scope
	canonical := buildCanonicalRequest(req, scope.Service, UnsignedPayload, parsed.SignedHeaders)
	expected := ComputeSignature(DeriveSigningKey(secret, scope), StringToSign(t, scope, canonical))
	if !hmac.Equal([]byte(expected), []byte(parsed.Signature)) {
		return parsed, ErrInvalidSignature
	}
	return parsed, nil
}

// DecodeChunkedBody reads an aws-chunked body whose request was verified with
// auth, checking every chunk signature against the chain seeded by the request
// signature. It returns the decoded payload.
func DecodeChunkedBody(req *http.Request, secret string, auth AuthHeader) ([]byte, error) {
	t, err := time.Parse(TimeFormat, req.Header.Get("X-Amz-Date"))
	if err != nil {
		return nil, fmt.Errorf("error parsing X-Amz-Date: %w", ErrMalformedAuth)
	}
	if req.Body == nil {
		return nil, ErrMalformedChunk
	}
	defer req.Body.Close()

	scope := auth.Credential.Scope
	key := DeriveSigningKey(secret, scope)
	prev := auth.Signature
	br := bufio.NewReader(req.Body)
	var out bytes.Buffer

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("error reading chunk header: %w", ErrMalformedChunk)
		}
		sizeHex, signature, ok := strings.Cut(strings.TrimSuffix(line, "\r\n"), ";chunk-signature=")
		if !ok {
			return nil, ErrMalformedChunk
		}
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || size < 0 {
			return nil, ErrMalformedChunk
		}

		data := make([]byte, size+2)
		if _, err := io.ReadFull(br, data); err != nil || !bytes.HasSuffix(data, []byte("\r\n")) {
			return nil, ErrMalformedChunk
		}
		data = data[:size]

		expected := ComputeSignature(key, ChunkStringToSign(t, scope, prev, data))
		if !hmac.Equal([]byte(expected), []byte(signature)) {
			return nil, ErrInvalidSignature
		}
		prev = signature
		out.Write(data)

		if size == 0 {
			break
		}
	}

	if declared := req.Header.Get("X-Amz-Decoded-Content-Length"); declared != "" {
		n, err := strconv.Atoi(declared)
		if err != nil {
			return nil, fmt.Errorf("error parsing X-Amz-Decoded-Content-Length: %w", ErrMalformedChunk)
		}
		if n != out.Len() {
			return nil, fmt.Errorf("decoded length %d, declared %d: %w", out.Len(), n, ErrPayloadMismatch)
		}
	}
	return out.Bytes(), nil
}
