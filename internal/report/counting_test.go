package report

import (
	"sync"
	"testing"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name+"/"+labels["kind"]] += delta
}
func (r *recordingBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (r *recordingBackend) Flush() error                                     { return nil }

// Not parallel: installs a global metrics backend.
func TestCountingForwardsAndFlushes(t *testing.T) {
	rb := &recordingBackend{counters: map[string]float64{}}
	metrics.SetBackend(rb)

	var inner Collector
	c := NewCounting("job", &inner)
	require.NoError(t, c.Report(relationErr(2, "a")))
	require.NoError(t, c.Report(relationErr(3, "b")))
	require.NoError(t, c.Report(Error{Kind: catalog.Uniqueness}))

	assert.Equal(t, 3, inner.Len())
	assert.Equal(t, int64(3), c.Total())
	assert.Equal(t, map[catalog.ErrorKind]int64{catalog.Relation: 2, catalog.Uniqueness: 1}, c.Counts())

	c.Flush()
	assert.Equal(t, 2.0, rb.counters[metrics.KeyErrorsTotal+"/RELATION"])
	assert.Equal(t, 1.0, rb.counters[metrics.KeyErrorsTotal+"/UNIQUENESS"])
	assert.Zero(t, c.Total())
}

func TestCountingWithoutNext(t *testing.T) {
	t.Parallel()

	c := NewCounting("job", nil)
	require.NoError(t, c.Report(Error{Kind: catalog.SurjectionError}))
	assert.Equal(t, int64(1), c.Total())
}
