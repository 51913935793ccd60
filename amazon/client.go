package amazon

import (
	"fmt"
	"net/http"

	"github.com/danthegoodman1/CloudConnect/client"
	"github.com/danthegoodman1/CloudConnect/sigv4"
)

// ClientConfig is everything an AWS service client needs besides the
// service name.
type ClientConfig struct {
	Region      string
	Credentials sigv4.CredentialsProvider
	// Clock defaults to the system clock
	Clock sigv4.Clock
	Mode  sigv4.PayloadMode
	// EndpointOverride replaces the public endpoint, e.g. with a fake
	EndpointOverride string
	// Transport defaults to http.DefaultClient
	Transport client.Transport
	Options   []client.Option
}

// NewClient composes base URI, signing and transport for one service:
// SetBaseURI -> SignAWSRequests -> transport.
func NewClient(service string, cfg ClientConfig) (*client.Client, error) {
	if err := ValidateRegion(cfg.Region); err != nil {
		return nil, err
	}
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("%s client: %w", service, sigv4.ErrMissingCredentials)
	}
	endpoint, err := Endpoint(service, cfg.Region, cfg.EndpointOverride)
	if err != nil {
		return nil, err
	}

	var transport client.Transport = http.DefaultClient
	if cfg.Transport != nil {
		transport = cfg.Transport
	}

	opts := append([]client.Option{client.WithFilters(
		client.SetBaseURI(endpoint),
		client.SignAWSRequests(sigv4.Signer{
			Region:      cfg.Region,
			Service:     service,
			Credentials: cfg.Credentials,
			Clock:       cfg.Clock,
			Mode:        cfg.Mode,
		}),
		client.RequestLogging(),
	)}, cfg.Options...)

	return client.New(service, transport, opts...), nil
}
