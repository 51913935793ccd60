package http_server

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/danthegoodman1/CloudConnect/client"
	"github.com/danthegoodman1/CloudConnect/sigv4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AWSProxy forwards requests the SigV4 middleware accepted to an upstream
// endpoint, re-signed with the proxy's own credentials. Callers only ever
// hold keys the proxy hands out.
type AWSProxy struct {
	upstream  *url.URL
	signer    sigv4.Signer
	transport client.Transport
}

// NewAWSProxy forwards to upstream. signer.Service names the proxied service
// and nil transport means http.DefaultClient.
func NewAWSProxy(upstream *url.URL, signer sigv4.Signer, transport client.Transport) *AWSProxy {
	if transport == nil {
		transport = http.DefaultClient
	}
	return &AWSProxy{upstream: upstream, signer: signer, transport: transport}
}

func (p *AWSProxy) ServiceName() string {
	return p.signer.Service
}

func (p *AWSProxy) Register(e *echo.Echo) {
	e.Any("/*", p.handleRequest)
}

func (p *AWSProxy) handleRequest(c echo.Context) error {
	cc, _ := c.(*CustomContext)
	logger := zerolog.Ctx(c.Request().Context())

	proxied, err := newProxiedRequest(c, p.upstream)
	if err != nil {
		ae := asAPIError(c, err)
		return echo.NewHTTPError(ae.status, ae.message)
	}

	signed, err := p.signer.Sign(proxied)
	if err != nil {
		logger.Error().Err(err).Msg("error re-signing proxied request")
		return echo.NewHTTPError(http.StatusBadGateway, "could not sign upstream request")
	}

	res, err := p.transport.Do(signed)
	if err != nil {
		logger.Warn().Err(err).Str("upstream", p.upstream.Host).Msg("upstream request failed")
		return echo.NewHTTPError(http.StatusBadGateway, "upstream unavailable")
	}

	logger.Debug().
		Str("keyID", cc.AWSCredentials.KeyID).
		Str("upstream", p.upstream.Host).
		Int("status", res.StatusCode).
		Msg("proxied request")

	if err = copyResponse(c.Response(), res); err != nil {
		return fmt.Errorf("error in copyResponse: %w", err)
	}
	return nil
}
