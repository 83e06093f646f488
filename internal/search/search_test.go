package search_test

import (
	"context"
	"strings"
	"testing"

	"specimencore/internal/core"
	"specimencore/internal/infra/persistence/memory"
	"specimencore/internal/search"
	"specimencore/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() []domain.Collection {
	stromatolite := domain.NewSpecimen("s1")
	stromatolite.Label = "SB-001"
	stromatolite.StructureType = domain.StructureStromatolite
	stromatolite.Notes = "Columnar stromatolite, well laminated"
	stromatolite.SetVoiceNote([]byte("m4a"), "Large domal STROMATOLITE near the jetty")
	stromatolite.SetOCR("stromatolite "+strings.Repeat("x", 150), 0.9)

	thrombolite := domain.NewSpecimen("s2")
	thrombolite.Label = "HP-7"
	thrombolite.StructureType = domain.StructureThrombolite
	thrombolite.Country = "Australia"

	return []domain.Collection{
		{ID: "c1", Locality: "Shark Bay", CollectorName: "J. Smith", Specimens: []domain.Specimen{stromatolite}},
		{ID: "c2", Locality: "Hamelin Pool", CollectorName: "Ana Müller", Specimens: []domain.Specimen{thrombolite}},
	}
}

func TestEmptyQueryYieldsNothing(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		assert.Empty(t, search.Search(fixture(), q, search.ScopeAll), "%q", q)
	}
}

func TestCollectionScopeMatchesLocalityAndCollector(t *testing.T) {
	res := search.Search(fixture(), "shark", search.ScopeCollections)
	require.Len(t, res, 1)
	assert.Equal(t, search.CategoryCollection, res[0].Category)
	assert.Equal(t, "Locality", res[0].MatchedField)
	assert.Equal(t, "c1", res[0].CollectionID)
	assert.Empty(t, res[0].SpecimenID)

	res = search.Search(fixture(), "MÜLLER", search.ScopeCollections)
	require.Len(t, res, 1)
	assert.Equal(t, "Collector", res[0].MatchedField)
}

func TestSpecimenScopeFirstFieldWins(t *testing.T) {
	res := search.Search(fixture(), "stromatolite", search.ScopeSpecimens)
	require.Len(t, res, 1, "one result per specimen even when several fields match")
	assert.Equal(t, "Structure", res[0].MatchedField)
	assert.Equal(t, "SB-001", res[0].Title)
	assert.Equal(t, "s1", res[0].SpecimenID)

	res = search.Search(fixture(), "austral", search.ScopeSpecimens)
	require.Len(t, res, 1)
	assert.Equal(t, "Country", res[0].MatchedField)
	assert.Equal(t, "c2", res[0].CollectionID)
}

func TestTextScopeYieldsVoiceAndOCRSeparately(t *testing.T) {
	res := search.Search(fixture(), "Stromatolite", search.ScopeText)
	require.Len(t, res, 2)
	assert.Equal(t, search.CategoryVoiceNote, res[0].Category)
	assert.Equal(t, "Large domal STROMATOLITE near the jetty", res[0].Excerpt)
	assert.Equal(t, search.CategoryOCR, res[1].Category)
	assert.True(t, strings.HasSuffix(res[1].Excerpt, "..."))
	assert.Equal(t, search.ExcerptLength+3, len([]rune(res[1].Excerpt)))
}

func TestAllScopeGroupsByCollection(t *testing.T) {
	res := search.Search(fixture(), "o", search.ScopeAll)
	require.NotEmpty(t, res)
	seenSecond := false
	for _, r := range res {
		if r.CollectionID == "c2" {
			seenSecond = true
		} else if seenSecond {
			t.Fatalf("result for c1 after c2: %+v", r)
		}
	}
}

func TestExcerptCountsRunes(t *testing.T) {
	short := strings.Repeat("é", search.ExcerptLength)
	assert.Equal(t, short, search.Excerpt(short))
	long := strings.Repeat("é", search.ExcerptLength+1)
	assert.Equal(t, short+"...", search.Excerpt(long))
}

func TestParseScope(t *testing.T) {
	s, err := search.ParseScope(" Text ")
	require.NoError(t, err)
	assert.Equal(t, search.ScopeText, s)
	s, err = search.ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, search.ScopeAll, s)
	_, err = search.ParseScope("everything")
	require.Error(t, err)
}

func TestIndexCachesUntilRegistryChanges(t *testing.T) {
	ctx := context.Background()
	reg := core.NewRegistry(memory.NewStore(core.NewDefaultRulesEngine()))
	_, err := reg.Create(ctx, "Shark Bay", "J. Smith")
	require.NoError(t, err)

	metrics := prometheus.NewRegistry()
	idx, err := search.NewIndex(reg, 0, search.WithMetrics(metrics))
	require.NoError(t, err)
	detach := idx.Attach(reg)
	defer detach()

	require.Len(t, idx.Search("bay", search.ScopeAll), 1)
	require.Len(t, idx.Search("BAY", search.ScopeAll), 1)
	assert.Equal(t, 1, idx.Len())

	_, err = reg.Create(ctx, "Bay of Islands", "K. Lee")
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
	assert.Len(t, idx.Search("bay", search.ScopeAll), 2)

	n, err := testutil.GatherAndCount(metrics, "specimen_search_cache_hits_total", "specimen_search_cache_misses_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	detach()
	_, err = reg.Create(ctx, "Bayside", "M")
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
	assert.Empty(t, idx.Search("  ", search.ScopeAll))
}

func TestLabelMatchesOnlyInSpecimenScopes(t *testing.T) {
	assert.Empty(t, search.Search(fixture(), "SB-001", search.ScopeCollections))
	assert.Empty(t, search.Search(fixture(), "SB-001", search.ScopeText))

	res := search.Search(fixture(), "sb-001", search.ScopeSpecimens)
	require.Len(t, res, 1)
	assert.Equal(t, "Specimen ID", res[0].MatchedField)
	assert.Equal(t, "s1", res[0].SpecimenID)

	assert.Len(t, search.Search(fixture(), "SB-001", search.ScopeAll), 1)
}

// racingSource runs onRead after handing out collections, standing in for a
// change committed while a query is evaluated.
type racingSource struct {
	collections []domain.Collection
	onRead      func()
}

func (s *racingSource) Collections() []domain.Collection {
	out := s.collections
	if s.onRead != nil {
		s.onRead()
	}
	return out
}

func TestIndexDropsResultsComputedBeforeInvalidation(t *testing.T) {
	src := &racingSource{collections: fixture()}
	idx, err := search.NewIndex(src, 8)
	require.NoError(t, err)
	src.onRead = idx.Invalidate

	require.Len(t, idx.Search("shark", search.ScopeCollections), 1)
	assert.Equal(t, 0, idx.Len(), "stale result must not be cached")

	src.onRead = nil
	require.Len(t, idx.Search("shark", search.ScopeCollections), 1)
	assert.Equal(t, 1, idx.Len())
}
