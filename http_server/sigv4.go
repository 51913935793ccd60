package http_server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danthegoodman1/CloudConnect/sigv4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidSignature = echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	ErrMissingAuth      = echo.NewHTTPError(http.StatusForbidden, "missing authentication token")
	ErrExpiredRequest   = echo.NewHTTPError(http.StatusForbidden, "request has expired")
)

func isPresigned(r *http.Request) bool {
	return r.URL.Query().Get("X-Amz-Algorithm") != ""
}

// verifyAWSRequestMiddleware accepts requests signed in the Authorization
// header or presigned in the query. The body of a header signed request is
// buffered so handlers can still read it.
func verifyAWSRequestMiddleware(keys LookupProvider[string, string], now func() time.Time) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			logger := zerolog.Ctx(req.Context())
			logger.Debug().Msg("verifying aws request")

			var keySecret string
			lookup := func(ctx context.Context, keyID string) (string, error) {
				secret, err := secretLookup(keys)(ctx, keyID)
				keySecret = secret
				return secret, err
			}

			var (
				parsedHeader sigv4.AuthHeader
				err          error
			)
			switch {
			case isPresigned(req):
				parsedHeader, err = sigv4.VerifyPresigned(req, lookup, now())
			case req.Header.Get("Authorization") != "":
				parsedHeader, err = sigv4.Verify(req, lookup)
			default:
				return ErrMissingAuth
			}
			if err != nil {
				logger.Debug().Err(err).Str("keyID", parsedHeader.Credential.KeyID).Msg("rejected aws request")
				if errors.Is(err, sigv4.ErrExpired) {
					return ErrExpiredRequest
				}
				return ErrInvalidSignature
			}

			cc, _ := c.(*CustomContext)
			cc.AWSCredentials = parsedHeader.Credential
			cc.authHeader = parsedHeader
			cc.keySecret = keySecret

			return next(c)
		}
	}
}
