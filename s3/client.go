package s3

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/danthegoodman1/CloudConnect/amazon"
	"github.com/danthegoodman1/CloudConnect/client"
	"github.com/danthegoodman1/CloudConnect/sigv4"
)

type Client struct {
	c        *client.Client
	endpoint *url.URL
	presign  sigv4.Signer
}

// New builds a path style client. cfg.Mode decides how object bodies are
// signed, PayloadStreamingSigned sends them aws-chunked.
func New(cfg amazon.ClientConfig) (*Client, error) {
	c, err := amazon.NewClient(ServiceName, cfg)
	if err != nil {
		return nil, err
	}
	endpoint, err := amazon.Endpoint(ServiceName, cfg.Region, cfg.EndpointOverride)
	if err != nil {
		return nil, err
	}
	return &Client{
		c:        c,
		endpoint: endpoint,
		presign: sigv4.Signer{
			Region:      cfg.Region,
			Service:     ServiceName,
			Credentials: cfg.Credentials,
			Clock:       cfg.Clock,
		},
	}, nil
}

func (c *Client) CreateBucket(ctx context.Context, a CreateBucket) action.Result[action.Unit] {
	return client.Invoke[action.Unit](ctx, c.c, a)
}

func (c *Client) DeleteBucket(ctx context.Context, a DeleteBucket) action.Result[action.Unit] {
	return client.Invoke[action.Unit](ctx, c.c, a)
}

func (c *Client) PutObject(ctx context.Context, a PutObject) action.Result[PutObjectOutput] {
	return client.Invoke[PutObjectOutput](ctx, c.c, a)
}

func (c *Client) GetObject(ctx context.Context, a GetObject) action.Result[Object] {
	return client.Invoke[Object](ctx, c.c, a)
}

func (c *Client) DeleteObject(ctx context.Context, a DeleteObject) action.Result[action.Unit] {
	return client.Invoke[action.Unit](ctx, c.c, a)
}

func (c *Client) ListObjects(ctx context.Context, a ListObjects) action.Result[ListBucketResult] {
	return client.Invoke[ListBucketResult](ctx, c.c, a)
}

// PresignGetObject returns a URL anyone can GET the object with until it
// expires. Nothing is sent.
func (c *Client) PresignGetObject(ctx context.Context, bucket, key string, expires time.Duration) (*url.URL, error) {
	u := *c.endpoint
	u.Path = strings.TrimSuffix(c.endpoint.Path, "/") + rawObjectPath(bucket, key)
	u.RawPath = ""
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error in http.NewRequestWithContext: %w", err)
	}
	return c.presign.Presign(req, expires)
}
