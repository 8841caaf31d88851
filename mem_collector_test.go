package sysx

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherValues(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64, len(families))
	for _, f := range families {
		m := f.GetMetric()
		require.Len(t, m, 1)
		switch {
		case m[0].GetCounter() != nil:
			values[f.GetName()] = m[0].GetCounter().GetValue()
		case m[0].GetGauge() != nil:
			values[f.GetName()] = m[0].GetGauge().GetValue()
		}
	}
	return values
}

func TestMemCollector(t *testing.T) {
	c := NewMemCollector()
	assert.Equal(t, 5, testutil.CollectAndCount(c))
	problems, err := testutil.CollectAndLint(c)
	require.NoError(t, err)
	assert.Empty(t, problems)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	before := gatherValues(t, reg)

	rw, err := NewRWLock()
	require.NoError(t, err)
	mid := gatherValues(t, reg)
	assert.Equal(t, before["sysx_mem_allocs_total"]+1, mid["sysx_mem_allocs_total"])
	assert.Equal(t, before["sysx_mem_heap_live_blocks"]+1, mid["sysx_mem_heap_live_blocks"])

	rw.Destroy()
	require.True(t, SetMemVTable(failingVTable()))
	_, err = NewRWLock()
	RestoreMemVTable()
	require.ErrorIs(t, err, ErrNoMemory)

	after := gatherValues(t, reg)
	assert.Equal(t, before["sysx_mem_frees_total"]+1, after["sysx_mem_frees_total"])
	assert.Equal(t, before["sysx_mem_alloc_failures_total"]+1, after["sysx_mem_alloc_failures_total"])
	assert.Equal(t, before["sysx_mem_heap_live_blocks"], after["sysx_mem_heap_live_blocks"])
	assert.Equal(t, before["sysx_mem_heap_live_bytes"], after["sysx_mem_heap_live_bytes"])
}
