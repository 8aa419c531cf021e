package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEvaluation(t *testing.T) {
	before := testutil.ToFloat64(evaluationsTotal.WithLabelValues("probe", "error"))

	RecordEvaluation("probe", time.Millisecond, errors.New("boom"))
	RecordEvaluation("probe", time.Millisecond, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(evaluationsTotal.WithLabelValues("probe", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(evaluationsTotal.WithLabelValues("probe", "ok")))
}

func TestTrackStream(t *testing.T) {
	release := TrackStream("probe")
	assert.Equal(t, 1.0, testutil.ToFloat64(activeStreams.WithLabelValues("probe")))
	release()
	assert.Equal(t, 0.0, testutil.ToFloat64(activeStreams.WithLabelValues("probe")))
}

func TestMetricsHandler(t *testing.T) {
	RecordEvaluation("probe_http", time.Millisecond, nil)

	resp := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/metrics", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.Contains(resp.Body.String(), `convo_eval_evaluations_total{metric="probe_http",outcome="ok"} 1`))
}

func TestSetLevel(t *testing.T) {
	defer Logger().SetLevel(Logger().GetLevel())

	assert.NoError(t, SetLevel(""))
	assert.NoError(t, SetLevel("debug"))
	assert.Equal(t, "debug", Logger().GetLevel().String())
	assert.Error(t, SetLevel("loud"))
}
