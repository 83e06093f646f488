package export

import (
	"context"
	"testing"
	"time"

	"specimencore/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerDropsRegressions(t *testing.T) {
	var seen []float64
	tr := newTracker(func(f float64) { seen = append(seen, f) })
	for _, f := range []float64{0.1, 0.05, 0.1, 0.5, 1.2, 1} {
		tr.report(f)
	}
	assert.Equal(t, []float64{0.1, 0.5, 1}, seen)

	var nilTracker *tracker
	nilTracker.report(0.5)
	newTracker(nil).report(0.5)
}

func TestUniqueName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "a", uniqueName("a", used))
	assert.Equal(t, "a_2", uniqueName("a", used))
	assert.Equal(t, "a_3", uniqueName("a", used))
	used["b_2"] = true
	assert.Equal(t, "b", uniqueName("b", used))
	assert.Equal(t, "b_3", uniqueName("b", used))
}

func TestMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	exp := NewExporter(t.TempDir(),
		WithMetrics(m),
		WithClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)
	c := domain.Collection{ID: "c1", Locality: "Shark Bay", CollectionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	res := exp.ExportCollection(context.Background(), c, nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("collection", "succeeded")))
	assert.Equal(t, float64(res.FileCount), testutil.ToFloat64(m.files))
	assert.Equal(t, float64(res.TotalBytes), testutil.ToFloat64(m.bytes))

	failed := exp.ExportAll(context.Background(), nil, nil)
	require.False(t, failed.Success)
	// empty input is rejected before any work is measured
	assert.Equal(t, 0.0, testutil.ToFloat64(m.exports.WithLabelValues("all", "failed")))

	res = exp.ExportAll(context.Background(), []domain.Collection{c}, nil)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("all", "succeeded")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))

	var none *Metrics
	none.observe("collection", res, time.Second)
}

func TestIndexReportsTotals(t *testing.T) {
	entries := []indexEntry{
		{collection: domain.Collection{Locality: "Shark Bay", IsComplete: true}, dir: "Shark_Bay_x"},
		{collection: domain.Collection{Locality: "Broken"}, err: "write failed"},
	}
	text := string(buildIndex(entries, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 12345, 2_000_000))
	assert.Contains(t, text, "Files:       12,345")
	assert.Contains(t, text, "Total size:  2.0 MB")
	assert.Contains(t, text, "Directory: Shark_Bay_x")
	assert.Contains(t, text, "(not exported: write failed)")
}
