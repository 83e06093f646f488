package media

import (
	"context"
	"testing"

	"specimencore/internal/blob"
	"specimencore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCollection() domain.Collection {
	sp := domain.NewSpecimen("sp-1")
	sp.Label = "SB-001"
	sp.AddPhoto([]byte("A"))
	sp.AddPhoto([]byte("B"))
	sp.AddFieldBookPage([]byte("page"))
	sp.LegacyPhoto = []byte("legacy")
	sp.SetVoiceNote([]byte("audio"), "laminated dome")
	return domain.Collection{
		ID:            "c-1",
		Locality:      "Shark Bay",
		CollectorName: "J. Smith",
		OverviewImage: []byte("drawer"),
		Specimens:     []domain.Specimen{sp},
	}
}

func TestStashIsContentAddressed(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	v := NewVault(store, nil)

	ref1, err := v.Stash(ctx, []byte("A"))
	require.NoError(t, err)
	ref2, err := v.Stash(ctx, []byte("A"))
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)
	assert.Equal(t, Ref([]byte("A")), ref1)

	infos, err := store.List(ctx, "media/")
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	empty, err := v.Stash(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	data, err := v.Load(ctx, ref1)
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), data)
}

func TestDehydrateHydrateRoundTrip(t *testing.T) {
	ctx := context.Background()
	v := NewVault(blob.NewMemory(), nil)
	c := sampleCollection()

	rec, err := Dehydrate(ctx, v, c)
	require.NoError(t, err)
	assert.Nil(t, rec.Collection.OverviewImage)
	assert.Nil(t, rec.Collection.Specimens[0].Photos)
	assert.Nil(t, rec.Collection.Specimens[0].VoiceNote.Audio)
	assert.Equal(t, "laminated dome", rec.Collection.Specimens[0].Transcript())
	assert.Len(t, rec.References(), 6)
	// source is untouched
	assert.Equal(t, []byte("drawer"), c.OverviewImage)

	back, err := Hydrate(ctx, v, rec)
	require.NoError(t, err)
	assert.Equal(t, c.OverviewImage, back.OverviewImage)
	assert.Equal(t, c.Specimens[0].Photos, back.Specimens[0].Photos)
	assert.Equal(t, c.Specimens[0].FieldBookPages, back.Specimens[0].FieldBookPages)
	assert.Equal(t, c.Specimens[0].LegacyPhoto, back.Specimens[0].LegacyPhoto)
	assert.Equal(t, []byte("audio"), back.Specimens[0].VoiceNote.Audio)
}

func TestNilVaultKeepsBytesInline(t *testing.T) {
	ctx := context.Background()
	c := sampleCollection()
	rec, err := Dehydrate(ctx, nil, c)
	require.NoError(t, err)
	assert.Equal(t, c.OverviewImage, rec.Collection.OverviewImage)
	assert.Empty(t, rec.References())

	back, err := Hydrate(ctx, nil, rec)
	require.NoError(t, err)
	assert.Equal(t, c.Specimens[0].Photos, back.Specimens[0].Photos)
}

func TestPruneRemovesUnreferencedMedia(t *testing.T) {
	ctx := context.Background()
	v := NewVault(blob.NewMemory(), nil)
	keep, err := v.Stash(ctx, []byte("keep"))
	require.NoError(t, err)
	_, err = v.Stash(ctx, []byte("drop"))
	require.NoError(t, err)

	removed, err := v.Prune(ctx, map[string]struct{}{keep: {}})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = v.Load(ctx, keep)
	assert.NoError(t, err)
	_, err = v.Load(ctx, Ref([]byte("drop")))
	assert.ErrorIs(t, err, blob.ErrNotFound)
}
