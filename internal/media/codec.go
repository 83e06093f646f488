package media

import (
	"context"
	"specimencore/pkg/domain"
)

// SpecimenRefs points at the media of one specimen.
type SpecimenRefs struct {
	Photos      []string `json:"photos,omitempty"`
	Pages       []string `json:"pages,omitempty"`
	LegacyPhoto string   `json:"legacy_photo,omitempty"`
	LegacyPage  string   `json:"legacy_page,omitempty"`
	Voice       string   `json:"voice,omitempty"`
}

// Record is the persisted form of a collection: metadata with media replaced by
// references. Without a vault the collection keeps its bytes inline and Refs
// stays empty.
type Record struct {
	Collection domain.Collection       `json:"collection"`
	Overview   string                  `json:"overview,omitempty"`
	Specimens  map[string]SpecimenRefs `json:"specimens,omitempty"`
}

// References lists every media reference held by the record.
func (r Record) References() []string {
	var refs []string
	add := func(ref string) {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	add(r.Overview)
	for _, sr := range r.Specimens {
		for _, p := range sr.Photos {
			add(p)
		}
		for _, p := range sr.Pages {
			add(p)
		}
		add(sr.LegacyPhoto)
		add(sr.LegacyPage)
		add(sr.Voice)
	}
	return refs
}

// Dehydrate moves collection media into the vault. A nil vault returns the
// collection unchanged.
func Dehydrate(ctx context.Context, v *Vault, c domain.Collection) (Record, error) {
	if v == nil {
		return Record{Collection: c.Clone()}, nil
	}
	out := Record{Collection: c.Clone()}
	var err error
	if out.Overview, err = v.Stash(ctx, c.OverviewImage); err != nil {
		return Record{}, err
	}
	out.Collection.OverviewImage = nil
	for i := range out.Collection.Specimens {
		sp := &out.Collection.Specimens[i]
		var refs SpecimenRefs
		if refs.Photos, err = stashAll(ctx, v, sp.Photos); err != nil {
			return Record{}, err
		}
		if refs.Pages, err = stashAll(ctx, v, sp.FieldBookPages); err != nil {
			return Record{}, err
		}
		if refs.LegacyPhoto, err = v.Stash(ctx, sp.LegacyPhoto); err != nil {
			return Record{}, err
		}
		if refs.LegacyPage, err = v.Stash(ctx, sp.LegacyFieldBookPage); err != nil {
			return Record{}, err
		}
		if sp.VoiceNote != nil {
			if refs.Voice, err = v.Stash(ctx, sp.VoiceNote.Audio); err != nil {
				return Record{}, err
			}
			sp.VoiceNote.Audio = nil
		}
		sp.Photos, sp.FieldBookPages, sp.LegacyPhoto, sp.LegacyFieldBookPage = nil, nil, nil, nil
		if out.Specimens == nil {
			out.Specimens = make(map[string]SpecimenRefs)
		}
		out.Specimens[sp.ID] = refs
	}
	return out, nil
}

// Hydrate restores media bytes from the vault. Records without references are
// returned as stored.
func Hydrate(ctx context.Context, v *Vault, r Record) (domain.Collection, error) {
	c := r.Collection.Clone()
	if v == nil {
		return c, nil
	}
	var err error
	if r.Overview != "" {
		if c.OverviewImage, err = v.Load(ctx, r.Overview); err != nil {
			return domain.Collection{}, err
		}
	}
	for i := range c.Specimens {
		sp := &c.Specimens[i]
		refs, ok := r.Specimens[sp.ID]
		if !ok {
			continue
		}
		if sp.Photos, err = loadAll(ctx, v, refs.Photos); err != nil {
			return domain.Collection{}, err
		}
		if sp.FieldBookPages, err = loadAll(ctx, v, refs.Pages); err != nil {
			return domain.Collection{}, err
		}
		if sp.LegacyPhoto, err = v.Load(ctx, refs.LegacyPhoto); err != nil {
			return domain.Collection{}, err
		}
		if sp.LegacyFieldBookPage, err = v.Load(ctx, refs.LegacyPage); err != nil {
			return domain.Collection{}, err
		}
		if refs.Voice != "" && sp.VoiceNote != nil {
			if sp.VoiceNote.Audio, err = v.Load(ctx, refs.Voice); err != nil {
				return domain.Collection{}, err
			}
		}
	}
	return c, nil
}

func stashAll(ctx context.Context, v *Vault, blobs [][]byte) ([]string, error) {
	if len(blobs) == 0 {
		return nil, nil
	}
	refs := make([]string, 0, len(blobs))
	for _, b := range blobs {
		ref, err := v.Stash(ctx, b)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func loadAll(ctx context.Context, v *Vault, refs []string) ([][]byte, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([][]byte, 0, len(refs))
	for _, ref := range refs {
		b, err := v.Load(ctx, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
