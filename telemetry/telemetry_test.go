package telemetry

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewInvocationMetrics(reg)

	m.ObserveInvocation("secretsmanager", "DeleteSecret", "success", 20*time.Millisecond)
	m.ObserveInvocation("secretsmanager", "DeleteSecret", "success", 30*time.Millisecond)
	m.ObserveInvocation("secretsmanager", "DeleteSecret", "RemoteFailure", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.invocations.WithLabelValues("secretsmanager", "DeleteSecret", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues("secretsmanager", "DeleteSecret", "RemoteFailure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	// a second registration on the same registry panics, a fresh one does not
	assert.Panics(t, func() { NewInvocationMetrics(reg) })
	assert.NotPanics(t, func() { NewInvocationMetrics(prometheus.NewRegistry()) })
}

func TestNewTracerProviderNone(t *testing.T) {
	tp, shutdown, err := NewTracerProvider(context.Background(), TracingOptions{Exporter: "none"})
	require.NoError(t, err)
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewTracerProviderStdout(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := NewTracerProvider(context.Background(), TracingOptions{
		Exporter:    "stdout",
		ServiceName: "cloudconnect-test",
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "secretsmanager.DeleteSecret")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "secretsmanager.DeleteSecret")
	assert.Contains(t, buf.String(), "cloudconnect-test")
}

func TestNewTracerProviderUnknown(t *testing.T) {
	_, _, err := NewTracerProvider(context.Background(), TracingOptions{Exporter: "zipkin"})
	assert.Error(t, err)
}
