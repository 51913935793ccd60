package sigv4

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	Algorithm        = "AWS4-HMAC-SHA256"
	ChunkAlgorithm   = "AWS4-HMAC-SHA256-PAYLOAD"
	ScopeTerminator  = "aws4_request"
	TimeFormat       = "20060102T150405Z"
	DateFormat       = "20060102"
	DefaultChunkSize = 64 * 1024
)

func getHMAC(key []byte, data []byte) []byte {
	hash := hmac.New(sha256.New, key)
	hash.Write(data)
	return hash.Sum(nil)
}

func getSHA256(data []byte) []byte {
	hash := sha256.New()
	hash.Write(data)
	return hash.Sum(nil)
}

func hexSHA256(data []byte) string {
	return hex.EncodeToString(getSHA256(data))
}

// StringToSign joins the algorithm, timestamp, scope and the hash of the canonical request
func StringToSign(t time.Time, scope CredentialScope, canonical CanonicalRequest) string {
	return Algorithm + "\n" +
		t.UTC().Format(TimeFormat) + "\n" +
		scope.String() + "\n" +
		hexSHA256([]byte(canonical.String()))
}

// DeriveSigningKey chains HMAC-SHA256 over date, region, service and aws4_request,
// seeded with the secret.
func DeriveSigningKey(secret string, scope CredentialScope) []byte {
	dateKey := getHMAC([]byte("AWS4"+secret), []byte(scope.Date))
	dateRegionKey := getHMAC(dateKey, []byte(scope.Region))
	dateRegionServiceKey := getHMAC(dateRegionKey, []byte(scope.Service))
	return getHMAC(dateRegionServiceKey, []byte(ScopeTerminator))
}

func ComputeSignature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(getHMAC(signingKey, []byte(stringToSign)))
}

// Signer authenticates requests with AWS Signature Version 4. A Signer holds
// no mutable state, the same value can sign from many goroutines.
type Signer struct {
	Region      string
	Service     string
	Credentials CredentialsProvider
	// Clock defaults to SystemClock
	Clock Clock
	Mode  PayloadMode
	// ChunkSize is only used by PayloadStreamingSigned, defaults to 64KiB
	ChunkSize int
}

func (s Signer) now() (time.Time, error) {
	if s.Clock == nil {
		return SystemClock()
	}
	t, err := s.Clock()
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (s Signer) credentials(ctx context.Context) (Credentials, error) {
	if s.Credentials == nil {
		return Credentials{}, ErrMissingCredentials
	}
	creds, err := s.Credentials(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return creds, nil
}

func (s Signer) chunkSize() int {
	if s.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return s.ChunkSize
}

// Sign returns a signed copy of req with the Authorization header set. req is
// not modified, except that a body without GetBody has to be consumed to be hashed.
func (s Signer) Sign(req *http.Request) (*http.Request, error) {
	ctx := req.Context()
	now, err := s.now()
	if err != nil {
		return nil, &SigningError{Op: "clock", Err: err}
	}
	creds, err := s.credentials(ctx)
	if err != nil {
		return nil, &SigningError{Op: "credentials", Err: err}
	}

	signed := req.Clone(ctx)
	signed.Header.Del("Authorization")
	signed.Header.Set("X-Amz-Date", now.Format(TimeFormat))
	if creds.SessionToken != "" {
		signed.Header.Set("X-Amz-Security-Token", creds.SessionToken)
	} else {
		signed.Header.Del("X-Amz-Security-Token")
	}

	var payloadHash string
	switch s.Mode {
	case PayloadUnsigned:
		payloadHash = UnsignedPayload
	case PayloadStreamingSigned:
		payloadHash = StreamingPayload
		if err = s.prepareStreaming(signed); err != nil {
			return nil, &SigningError{Op: "payload", Err: err}
		}
	default:
		body, err := materializeBody(signed)
		if err != nil {
			return nil, &SigningError{Op: "payload", Err: err}
		}
		payloadHash = hexSHA256(body)
	}
	if s.Service == "s3" || s.Mode != PayloadSigned {
		signed.Header.Set("X-Amz-Content-Sha256", payloadHash)
	}

	scope := NewCredentialScope(now, s.Region, s.Service)
	canonical := BuildCanonicalRequest(signed, s.Service, payloadHash)
	signingKey := DeriveSigningKey(creds.SecretAccessKey, scope)
	signature := ComputeSignature(signingKey, StringToSign(now, scope, canonical))

	signed.Header.Set("Authorization", AuthHeader{
		Credential:    Credential{KeyID: creds.AccessKeyID, Scope: scope},
		SignedHeaders: strings.Split(canonical.SignedHeaders, ";"),
		Signature:     signature,
	}.String())

	if s.Mode == PayloadStreamingSigned {
		s.attachChunkedBody(signed, signingKey, scope, now, signature)
	}

	return signed, nil
}

// materializeBody reads the whole body so it can be hashed, and leaves req
// with a body that can be read again.
func materializeBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	rc := req.Body
	if req.GetBody != nil {
		var err error
		if rc, err = req.GetBody(); err != nil {
			return nil, fmt.Errorf("error in GetBody: %w", err)
		}
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.ContentLength = int64(len(body))
	return body, nil
}

func (s Signer) prepareStreaming(req *http.Request) error {
	if req.ContentLength < 0 || (req.ContentLength == 0 && req.Body != nil && req.Body != http.NoBody) {
		// the decoded length has to be declared up front
		if _, err := materializeBody(req); err != nil {
			return err
		}
	}
	decoded := req.ContentLength
	req.Header.Set("X-Amz-Decoded-Content-Length", strconv.FormatInt(decoded, 10))
	encoding := "aws-chunked"
	if existing := req.Header.Get("Content-Encoding"); existing != "" {
		encoding += "," + existing
	}
	req.Header.Set("Content-Encoding", encoding)
	req.ContentLength = EncodedLength(decoded, s.chunkSize())
	return nil
}

func (s Signer) attachChunkedBody(req *http.Request, signingKey []byte, scope CredentialScope, t time.Time, seed string) {
	var src io.Reader = http.NoBody
	if req.Body != nil {
		src = req.Body
	}
	getBody := req.GetBody
	req.Body = newChunkedReader(src, signingKey, scope, t, seed, s.chunkSize())
	if getBody != nil {
		req.GetBody = func() (io.ReadCloser, error) {
			rc, err := getBody()
			if err != nil {
				return nil, err
			}
			return newChunkedReader(rc, signingKey, scope, t, seed, s.chunkSize()), nil
		}
	} else {
		req.GetBody = nil
	}
}
