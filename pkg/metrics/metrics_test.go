package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.JobsPrepared.WithLabelValues("periodic").Inc()
	m.JobsCompleted.WithLabelValues("Native", "finished").Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobsPrepared.WithLabelValues("periodic")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.JobsCompleted.WithLabelValues("Native", "finished")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "jobrunner_jobs_prepared_total")
}
