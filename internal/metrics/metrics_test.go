package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/everclearorg/mark-sub000/internal/metrics"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.WithLabelValues(labels...).(prometheus.Metric).Write(m))
	return m.GetCounter().GetValue()
}

func TestRecordTickIncrementsCounterAndObservesDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry("rebalancer", reg)

	m.RecordTick("rebalancer", "ok", 10*time.Millisecond)

	require.Equal(t, float64(1), counterValue(t, m.TicksTotal, "rebalancer", "ok"))
}

func TestRecordSweeperExpiredSkipsZeroCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry("rebalancer", reg)

	m.RecordSweeperExpired("rebalancer", "earmark", 0)
	require.Equal(t, float64(0), counterValue(t, m.SweeperExpiredTotal, "rebalancer", "earmark"))

	m.RecordSweeperExpired("rebalancer", "earmark", 3)
	require.Equal(t, float64(3), counterValue(t, m.SweeperExpiredTotal, "rebalancer", "earmark"))
}
