package sigv4

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const maxPresignExpiry = 7 * 24 * time.Hour

// Presign returns a URL that carries its authentication in the query string,
// valid for expires. The payload is always UNSIGNED-PAYLOAD.
func (s Signer) Presign(req *http.Request, expires time.Duration) (*url.URL, error) {
	if expires < time.Second || expires > maxPresignExpiry {
		return nil, ErrInvalidExpiration
	}
	ctx := req.Context()
	now, err := s.now()
	if err != nil {
		return nil, &SigningError{Op: "clock", Err: err}
	}
	creds, err := s.credentials(ctx)
	if err != nil {
		return nil, &SigningError{Op: "credentials", Err: err}
	}

	presigned := req.Clone(ctx)
	presigned.Header.Del("Authorization")
	presigned.Header.Del("X-Amz-Date")
	// the body is not part of a presigned request
	presigned.ContentLength = 0

	scope := NewCredentialScope(now, s.Region, s.Service)
	signedHeaders := lo.Map(canonicalHeaders(presigned, nil), func(h Header, _ int) string {
		return h.Name
	})

	query := presigned.URL.Query()
	query.Set("X-Amz-Algorithm", Algorithm)
	query.Set("X-Amz-Credential", creds.AccessKeyID+"/"+scope.String())
	query.Set("X-Amz-Date", now.Format(TimeFormat))
	query.Set("X-Amz-Expires", strconv.FormatInt(int64(expires/time.Second), 10))
	query.Set("X-Amz-SignedHeaders", strings.Join(signedHeaders, ";"))
	if creds.SessionToken != "" {
		query.Set("X-Amz-Security-Token", creds.SessionToken)
	}
	query.Del("X-Amz-Signature")
	presigned.URL.RawQuery = canonicalQuery(query)

	canonical := BuildCanonicalRequest(presigned, s.Service, UnsignedPayload)
	signature := ComputeSignature(DeriveSigningKey(creds.SecretAccessKey, scope), StringToSign(now, scope, canonical))

	u := *presigned.URL
	u.RawQuery += "&X-Amz-Signature=" + signature
	return &u, nil
}
