package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medscan/constants"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	}
	t.Fatalf("unexpected metric type")
	return 0
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(nil)

	r.ObserveProposal(constants.KindLab, constants.TierHigh)
	r.ObserveProposal(constants.KindLab, constants.TierHigh)
	r.ObserveProposal(constants.KindMedication, constants.TierLow)
	r.ObserveFailure("ocr")
	r.JobStarted()
	r.JobStarted()
	r.JobFinished()

	assert.Equal(t, 2.0, value(t, r.proposals.WithLabelValues("LAB", "high")))
	assert.Equal(t, 1.0, value(t, r.proposals.WithLabelValues("MEDICATION", "low")))
	assert.Equal(t, 1.0, value(t, r.failures.WithLabelValues("ocr")))
	assert.Equal(t, 1.0, value(t, r.jobsInFlight))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	r.ObserveOCR("image-ocr", 1500*time.Millisecond)
	r.ObserveProposal(constants.KindLab, constants.TierMedium)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `medscan_proposals_total{confidence="medium",kind="LAB"} 1`)
	assert.Contains(t, string(body), `medscan_ocr_duration_seconds_count{method="image-ocr"} 1`)
}
