package config

import (
	"context"

	"github.com/danthegoodman1/CloudConnect/client"
	"github.com/danthegoodman1/CloudConnect/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

const telemetryServiceName = "cloudconnect"

// ClientOptions turns OTelExporter, OTelEndpoint and MetricsEnabled into
// client options, to be passed on to AWSClientConfig and KafkaRestConfig.
// Call the shutdown func before exiting to flush spans. A nil reg means the
// default registerer.
func (c Config) ClientOptions(ctx context.Context, reg prometheus.Registerer) ([]client.Option, telemetry.ShutdownFunc, error) {
	tp, shutdown, err := telemetry.NewTracerProvider(ctx, telemetry.TracingOptions{
		Exporter:    c.OTelExporter,
		Endpoint:    c.OTelEndpoint,
		ServiceName: telemetryServiceName,
	})
	if err != nil {
		return nil, nil, err
	}

	opts := []client.Option{client.WithTracerProvider(tp)}
	if c.MetricsEnabled {
		opts = append(opts, client.WithObserver(telemetry.NewInvocationMetrics(reg)))
	}
	return opts, shutdown, nil
}
