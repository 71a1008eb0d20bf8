package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "delta-workflow", config.ServiceName)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.False(t, config.Enabled)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Meter())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderNilConfig(t *testing.T) {
	p, err := New(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestTrackOperationDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	ctx, done := p.TrackOperation(context.Background(), "workflow.apply",
		attribute.String("entity_type", "hazardous_event"))
	require.NotNil(t, ctx)
	done(nil)

	_, done = p.TrackOperation(context.Background(), "workflow.apply")
	done(errors.New("boom"))
}

func TestWorkflowMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkflowMetrics(reg)

	m.TransitionApplied("hazardous_event", "submit-validation", "waiting-for-validation")
	m.TransitionApplied("hazardous_event", "submit-validation", "waiting-for-validation")
	m.TransitionRejected("disaster_event", "publish")
	m.RelationshipEdited("cycle")
	m.NotificationFailed("validators")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("hazardous_event", "submit-validation", "waiting-for-validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("disaster_event", "publish")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.relationships.WithLabelValues("cycle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifyFails.WithLabelValues("validators")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestWorkflowMetricsUnregistered(t *testing.T) {
	m := NewWorkflowMetrics(nil)
	m.TransitionRejected("hazardous_event", "approve")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections))
}
