package metrics_test

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/metrics"
)

// gather returns the samples of reg as "name{k=v,...}" -> value.
func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)
			key := mf.GetName() + "{" + strings.Join(labels, ",") + "}"
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestServiceMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewServiceMetrics(reg)

	m.RecordOperation("createFolder", time.Millisecond, nil)
	m.RecordOperation("createFolder", time.Millisecond, cmis.Errorf(cmis.KindNameConstraintViolation, "taken"))
	m.RecordOperation("getObject", time.Millisecond, errors.New("boom"))
	m.RecordContentBytes("in", 42)
	m.SetObjectCount(7)

	samples := gather(t, reg)
	assert.Equal(t, float64(1), samples["cmis_operations_total{operation=createFolder,status=success}"])
	assert.Equal(t, float64(1), samples["cmis_operations_total{operation=createFolder,status=error}"])
	assert.Equal(t, float64(1), samples["cmis_operation_errors_total{kind=nameConstraintViolation,operation=createFolder}"])
	assert.Equal(t, float64(1), samples["cmis_operation_errors_total{kind=runtime,operation=getObject}"])
	assert.Equal(t, float64(2), samples["cmis_operation_duration_seconds{operation=createFolder}"])
	assert.Equal(t, float64(42), samples["cmis_content_bytes_total{direction=in}"])
	assert.Equal(t, float64(7), samples["cmis_objects{}"])
}

func TestServiceMetrics_Noop(t *testing.T) {
	m := metrics.NewServiceMetrics(nil)
	assert.IsType(t, metrics.NoopServiceMetrics{}, m)
	m.RecordOperation("x", time.Second, nil)
	m.RecordContentBytes("out", 1)
	m.SetObjectCount(1)
}

func TestRegistry(t *testing.T) {
	metrics.InitRegistry()
	metrics.InitRegistry()
	require.True(t, metrics.IsEnabled())
	assert.NotNil(t, metrics.GetRegistry())
}
