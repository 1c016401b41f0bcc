package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.Install(0)
	r.Pull(0)
	r.Pull(1)
	r.Passed(200 * time.Millisecond)
	r.Failed(StageLoad, 100*time.Millisecond)
	r.Failed("", 100*time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(r.models.WithLabelValues(resultPass)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.models.WithLabelValues(resultFail)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.materialize.WithLabelValues(stepPull, "1")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.failures.WithLabelValues(StageUnknown)), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(r.materialize))
}

func TestRecorder_Snapshot(t *testing.T) {
	r := New()
	r.Passed(time.Second)
	r.Passed(time.Second)
	r.Failed(StageCheck, 500*time.Millisecond)

	s, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, map[string]int{StageCheck: 1}, s.ByStage)
	assert.Equal(t, 3, s.Observed)
	assert.InDelta(t, 2.5, s.Seconds, 1e-9)
}

func TestRecorder_IsolatedRegistries(t *testing.T) {
	a, b := New(), New()
	a.Passed(time.Millisecond)

	s, err := b.Snapshot()
	require.NoError(t, err)
	assert.Zero(t, s.Passed)
}
