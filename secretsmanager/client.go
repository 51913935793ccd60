package secretsmanager

import (
	"context"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/danthegoodman1/CloudConnect/amazon"
	"github.com/danthegoodman1/CloudConnect/client"
)

type Client struct {
	c *client.Client
}

func New(cfg amazon.ClientConfig) (*Client, error) {
	c, err := amazon.NewClient(ServiceName, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{c: c}, nil
}

func (c *Client) CreateSecret(ctx context.Context, a CreateSecret) action.Result[CreatedSecret] {
	return client.Invoke[CreatedSecret](ctx, c.c, a)
}

func (c *Client) DeleteSecret(ctx context.Context, a DeleteSecret) action.Result[DeletedSecret] {
	return client.Invoke[DeletedSecret](ctx, c.c, a)
}

func (c *Client) GetSecretValue(ctx context.Context, a GetSecretValue) action.Result[SecretValue] {
	return client.Invoke[SecretValue](ctx, c.c, a)
}

func (c *Client) ListSecrets(ctx context.Context, a ListSecrets) action.Result[Secrets] {
	return client.Invoke[Secrets](ctx, c.c, a)
}

func (c *Client) PutSecretValue(ctx context.Context, a PutSecretValue) action.Result[UpdatedSecret] {
	return client.Invoke[UpdatedSecret](ctx, c.c, a)
}

func (c *Client) UpdateSecret(ctx context.Context, a UpdateSecret) action.Result[UpdatedSecret] {
	return client.Invoke[UpdatedSecret](ctx, c.c, a)
}
