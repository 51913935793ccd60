package config

import (
	"context"
	"io"
	"time"

	"github.com/danthegoodman1/CloudConnect/amazon"
	"github.com/danthegoodman1/CloudConnect/client"
	"github.com/danthegoodman1/CloudConnect/kafkarest"
	"github.com/danthegoodman1/CloudConnect/transport"
)

const retryInitialInterval = 100 * time.Millisecond

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Transport builds the HTTP transport named by HTTPTransport, with retries
// when HTTPRetries > 0. Close the closer on shutdown.
func (c Config) Transport(opts transport.Options) (client.Transport, io.Closer, error) {
	var (
		t      client.Transport
		closer io.Closer = nopCloser{}
	)
	switch c.HTTPTransport {
	case "http3":
		t, closer = transport.NewHTTP3Client(opts)
	default:
		httpClient, err := transport.NewHTTPClient(opts)
		if err != nil {
			return nil, nil, err
		}
		t = httpClient
	}
	if c.HTTPRetries > 0 {
		t = transport.Retrying(t, c.HTTPRetries, retryInitialInterval)
	}
	return t, closer, nil
}

// AWSClientConfig is the shared configuration for the secretsmanager and s3
// clients.
func (c Config) AWSClientConfig(ctx context.Context, t client.Transport, opts ...client.Option) (amazon.ClientConfig, error) {
	creds, err := c.CredentialsProvider(ctx)
	if err != nil {
		return amazon.ClientConfig{}, err
	}
	return amazon.ClientConfig{
		Region:           c.AWSRegion,
		Credentials:      creds,
		Mode:             c.PayloadMode,
		EndpointOverride: c.AWSEndpointURL,
		Transport:        t,
		Options:          opts,
	}, nil
}

func (c Config) KafkaRestConfig(t client.Transport, opts ...client.Option) kafkarest.Config {
	return kafkarest.Config{
		BaseURL:   c.KafkaRestURL,
		User:      c.KafkaRestUser,
		Password:  c.KafkaRestPassword,
		Transport: t,
		Options:   opts,
	}
}
