package http_server

import (
	"crypto/subtle"
	"time"

	"github.com/danthegoodman1/CloudConnect/gologger"
	"github.com/danthegoodman1/CloudConnect/sigv4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/segmentio/ksuid"
)

var logger = gologger.NewLogger()

type CustomContext struct {
	echo.Context
	RequestID string
	// AWSCredentials is set once the SigV4 middleware accepted the request
	AWSCredentials sigv4.Credential

	authHeader sigv4.AuthHeader
	keySecret  string
}

type ServerOptions struct {
	// Keys maps AWS access key ids to secrets. When set every request must
	// carry a valid SigV4 signature.
	Keys LookupProvider[string, string]
	// BasicAuth maps users to passwords. When set every request must carry
	// matching basic auth.
	BasicAuth LookupProvider[string, string]
	// Now is used to expire presigned urls, defaults to time.Now
	Now func() time.Time
}

// NewServer builds an echo instance serving the given providers. Mount it
// behind httptest.NewServer or hand it to transport.Handler.
func NewServer(opts ServerOptions, providers ...AWSServiceProvider) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&CustomContext{Context: c})
		}
	})
	e.Use(requestIDMiddleware, requestLoggerMiddleware)

	if opts.Keys != nil {
		now := opts.Now
		if now == nil {
			now = time.Now
		}
		e.Use(verifyAWSRequestMiddleware(opts.Keys, now))
	}
	if opts.BasicAuth != nil {
		e.Use(middleware.BasicAuth(func(user, password string, c echo.Context) (bool, error) {
			expected, err := opts.BasicAuth.Lookup(c.Request().Context(), user)
			if err != nil || expected == nil {
				return false, err
			}
			return subtle.ConstantTimeCompare([]byte(*expected), []byte(password)) == 1, nil
		}))
	}

	for _, provider := range providers {
		provider.Register(e)
		logger.Debug().Str("service", provider.ServiceName()).Msg("registered provider")
	}
	return e
}

func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cc := c.(*CustomContext)
		cc.RequestID = ksuid.New().String()
		c.Response().Header().Set("x-amzn-RequestId", cc.RequestID)
		return next(c)
	}
}

func requestLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cc := c.(*CustomContext)
		start := time.Now()
		l := logger.With().Str("requestID", cc.RequestID).Logger()
		req := c.Request()
		c.SetRequest(req.WithContext(l.WithContext(req.Context())))

		if err := next(c); err != nil {
			c.Error(err)
		}

		l.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", c.Response().Status).
			Dur("duration", time.Since(start)).
			Msg("handled request")
		return nil
	}
}
