package kafkarest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/danthegoodman1/CloudConnect/client"
)

const ServiceName = "kafkarest"

type Config struct {
	BaseURL  string `validate:"required,url"`
	User     string
	Password string `validate:"required_with=User"`
	// Transport defaults to http.DefaultClient
	Transport client.Transport
	Options   []client.Option
}

type Client struct {
	c *client.Client
}

// New builds a client for the proxy at cfg.BaseURL, with basic auth when a
// user is configured.
func New(cfg Config) (*Client, error) {
	if err := action.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid kafka rest config: %w", err)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("error in url.Parse: %w", err)
	}

	filters := []client.Filter{client.SetBaseURI(base)}
	if cfg.User != "" {
		filters = append(filters, client.BasicAuth(cfg.User, cfg.Password))
	}
	filters = append(filters, client.SetHeader("Accept", ContentType), client.RequestLogging())

	var transport client.Transport = http.DefaultClient
	if cfg.Transport != nil {
		transport = cfg.Transport
	}

	opts := append([]client.Option{client.WithFilters(filters...)}, cfg.Options...)
	return &Client{c: client.New(ServiceName, transport, opts...)}, nil
}

func (c *Client) CreateConsumer(ctx context.Context, group string, consumer Consumer) action.Result[NewConsumer] {
	return client.Invoke[NewConsumer](ctx, c.c, CreateConsumer{Group: group, Consumer: consumer})
}

func (c *Client) DeleteConsumer(ctx context.Context, group, instance string) action.Result[action.Unit] {
	return client.Invoke[action.Unit](ctx, c.c, DeleteConsumer{Group: group, Instance: instance})
}

func (c *Client) SubscribeToTopics(ctx context.Context, group, instance string, topics ...string) action.Result[action.Unit] {
	return client.Invoke[action.Unit](ctx, c.c, SubscribeToTopics{Group: group, Instance: instance, Topics: topics})
}

func (c *Client) ConsumeRecords(ctx context.Context, group, instance string, format RecordFormat) action.Result[[]Record] {
	return client.Invoke[[]Record](ctx, c.c, ConsumeRecords{Group: group, Instance: instance, Format: format})
}

func (c *Client) CommitOffsets(ctx context.Context, group, instance string, offsets ...TopicPartitionOffset) action.Result[action.Unit] {
	return client.Invoke[action.Unit](ctx, c.c, CommitOffsets{Group: group, Instance: instance, Offsets: offsets})
}

func (c *Client) SeekOffsets(ctx context.Context, group, instance string, offsets ...TopicPartitionOffset) action.Result[action.Unit] {
	return client.Invoke[action.Unit](ctx, c.c, SeekOffsets{Group: group, Instance: instance, Offsets: offsets})
}

func (c *Client) ProduceRecords(ctx context.Context, topic string, format RecordFormat, records ...ProduceRecord) action.Result[ProducedRecords] {
	return client.Invoke[ProducedRecords](ctx, c.c, ProduceRecords{Topic: topic, Format: format, Records: records})
}
