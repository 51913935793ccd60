// Package client composes filters, a transport and the action protocol into
// a single call path: Invoke(ctx, client, action) -> Result.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/danthegoodman1/CloudConnect/gologger"
	"github.com/danthegoodman1/CloudConnect/sigv4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var logger = gologger.NewLogger()

const tracerName = "github.com/danthegoodman1/CloudConnect/client"

var errNoResponse = errors.New("transport returned no response")

// Transport sends one fully formed request. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

type TransportFunc func(req *http.Request) (*http.Response, error)

func (f TransportFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

type HandlerFunc func(req *http.Request) (*http.Response, error)

// Filter decorates a handler, e.g. to sign or to set the base URI
type Filter func(next HandlerFunc) HandlerFunc

// Observer is told about every finished invocation
type Observer interface {
	ObserveInvocation(service, actionName, outcome string, duration time.Duration)
}

// Client holds no mutable state and can be shared between goroutines.
type Client struct {
	service  string
	handler  HandlerFunc
	observer Observer
	tracer   trace.Tracer
}

type options struct {
	filters        []Filter
	observer       Observer
	tracerProvider trace.TracerProvider
}

type Option func(*options)

// WithFilters adds filters, the first one given sees the request first
func WithFilters(filters ...Filter) Option {
	return func(o *options) {
		o.filters = append(o.filters, filters...)
	}
}

func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

func New(service string, transport Transport, opts ...Option) *Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	handler := HandlerFunc(transport.Do)
	for i := len(o.filters) - 1; i >= 0; i-- {
		handler = o.filters[i](handler)
	}

	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Client{
		service:  service,
		handler:  handler,
		observer: o.observer,
		tracer:   tp.Tracer(tracerName),
	}
}

func (c *Client) Service() string {
	return c.service
}

// Invoke encodes the action, sends it through the filters and the transport
// exactly once, and decodes the response. Every failure comes back inside the
// Result.
func Invoke[R any](ctx context.Context, c *Client, a action.Action[R]) (result action.Result[R]) {
	name := action.NameOf(a)
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, c.service+"."+name, trace.WithSpanKind(trace.SpanKindClient))

	defer func() {
		outcome := "success"
		if f := result.Failure(); f != nil {
			outcome = string(f.Kind)
			span.SetStatus(codes.Error, f.Error())
			span.SetAttributes(attribute.String("failure.code", f.Code))
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		span.End()

		duration := time.Since(start)
		if c.observer != nil {
			c.observer.ObserveInvocation(c.service, name, outcome, duration)
		}
		invocationLogger(ctx).Debug().
			Str("service", c.service).
			Str("action", name).
			Str("outcome", outcome).
			Dur("duration", duration).
			Msg("invoked action")
	}()

	req, err := a.ToRequest()
	if err != nil {
		return action.Fail[R](action.InvalidFailure(fmt.Errorf("error in ToRequest: %w", err)))
	}

	resp, err := c.handler(req.WithContext(ctx))
	if err != nil {
		var signingErr *sigv4.SigningError
		if errors.As(err, &signingErr) {
			return action.Fail[R](action.SigningFailure(err))
		}
		return action.Fail[R](action.TransportFailure(err))
	}
	if resp == nil {
		return action.Fail[R](action.TransportFailure(errNoResponse))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	return decode(a, resp)
}

func decode[R any](a action.Action[R], resp *http.Response) (result action.Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			result = action.Fail[R](action.DecodeFailure(resp.StatusCode, nil, fmt.Errorf("panic decoding response: %v", r)))
		}
		if resp.Body != nil {
			resp.Body.Close()
		}
	}()
	return a.ToResult(resp)
}

func invocationLogger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &logger
	}
	return l
}
