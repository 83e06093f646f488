// Package search implements case-insensitive substring search across
// collections and their specimens.
package search

import (
	"fmt"
	"specimencore/pkg/domain"
	"strings"

	"golang.org/x/text/cases"
)

// Scope restricts which fields a query is matched against.
type Scope string

const (
	// ScopeAll matches every searchable field.
	ScopeAll Scope = "all"
	// ScopeCollections matches collection locality and collector only.
	ScopeCollections Scope = "collections"
	// ScopeSpecimens matches specimen metadata fields.
	ScopeSpecimens Scope = "specimens"
	// ScopeText matches voice transcripts and OCR text.
	ScopeText Scope = "text"
)

// Scopes lists every scope in display order.
var Scopes = []Scope{ScopeAll, ScopeCollections, ScopeSpecimens, ScopeText}

// ParseScope maps raw input onto a scope. Empty input means ScopeAll.
func ParseScope(raw string) (Scope, error) {
	s := Scope(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return ScopeAll, nil
	}
	for _, v := range Scopes {
		if v == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown search scope %q", raw)
}

func (s Scope) includes(other Scope) bool { return s == ScopeAll || s == other }

// Category tags a result with the kind of record it points at.
type Category string

const (
	// CategoryCollection marks a collection hit.
	CategoryCollection Category = "collection"
	// CategorySpecimen marks a specimen metadata hit.
	CategorySpecimen Category = "specimen"
	// CategoryVoiceNote marks a voice transcript hit.
	CategoryVoiceNote Category = "voice_note"
	// CategoryOCR marks a field-book OCR text hit.
	CategoryOCR Category = "ocr"
)

// Result is one search hit. SpecimenID is empty for collection hits.
type Result struct {
	Category     Category
	Title        string
	Subtitle     string
	MatchedField string
	Excerpt      string
	CollectionID string
	SpecimenID   string
}

// ExcerptLength is the rune limit for voice and OCR excerpts.
const ExcerptLength = 100

// fold case-folds s. A Caser keeps state, so each call gets its own.
func fold(s string) string { return cases.Fold().String(s) }

type matcher struct{ needle string }

func newMatcher(query string) matcher { return matcher{needle: fold(query)} }

func (m matcher) match(field string) bool {
	return field != "" && strings.Contains(fold(field), m.needle)
}

// Search scans collections in order, then each collection's specimens in
// order. An empty query after trimming yields no results.
func Search(collections []domain.Collection, query string, scope Scope) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if scope == "" {
		scope = ScopeAll
	}
	m := newMatcher(query)
	var out []Result
	for _, c := range collections {
		if scope.includes(ScopeCollections) {
			if field, ok := collectionMatch(m, c); ok {
				out = append(out, Result{
					Category:     CategoryCollection,
					Title:        c.Locality,
					Subtitle:     c.CollectorName,
					MatchedField: field,
					CollectionID: c.ID,
				})
			}
		}
		for _, sp := range c.Specimens {
			if scope.includes(ScopeSpecimens) {
				if field, ok := specimenMatch(m, sp); ok {
					out = append(out, Result{
						Category:     CategorySpecimen,
						Title:        specimenTitle(sp),
						Subtitle:     c.Locality,
						MatchedField: field,
						CollectionID: c.ID,
						SpecimenID:   sp.ID,
					})
				}
			}
			if scope.includes(ScopeText) {
				out = append(out, textMatches(m, c, sp)...)
			}
		}
	}
	return out
}

func collectionMatch(m matcher, c domain.Collection) (string, bool) {
	switch {
	case m.match(c.Locality):
		return "Locality", true
	case m.match(c.CollectorName):
		return "Collector", true
	}
	return "", false
}

// specimenMatch reports the first matching field only.
func specimenMatch(m matcher, sp domain.Specimen) (string, bool) {
	fields := []struct{ name, value string }{
		{"Specimen ID", sp.Label},
		{"Age", sp.Age},
		{"Structure", sp.StructureType.String()},
		{"Mineral", sp.MineralType.String()},
		{"Country", sp.Country},
		{"State", sp.State},
		{"City", sp.City},
		{"Notes", sp.Notes},
	}
	for _, f := range fields {
		if m.match(f.value) {
			return f.name, true
		}
	}
	return "", false
}

func textMatches(m matcher, c domain.Collection, sp domain.Specimen) []Result {
	var out []Result
	if t := sp.Transcript(); m.match(t) {
		out = append(out, Result{
			Category:     CategoryVoiceNote,
			Title:        specimenTitle(sp),
			Subtitle:     c.Locality,
			MatchedField: "Voice Note",
			Excerpt:      Excerpt(t),
			CollectionID: c.ID,
			SpecimenID:   sp.ID,
		})
	}
	if m.match(sp.OCRText) {
		out = append(out, Result{
			Category:     CategoryOCR,
			Title:        specimenTitle(sp),
			Subtitle:     c.Locality,
			MatchedField: "Field Book",
			Excerpt:      Excerpt(sp.OCRText),
			CollectionID: c.ID,
			SpecimenID:   sp.ID,
		})
	}
	return out
}

func specimenTitle(sp domain.Specimen) string {
	if label := strings.TrimSpace(sp.Label); label != "" {
		return label
	}
	return "Unlabeled specimen"
}

// Excerpt truncates text to ExcerptLength runes, appending "..." when cut.
func Excerpt(text string) string {
	r := []rune(text)
	if len(r) <= ExcerptLength {
		return text
	}
	return string(r[:ExcerptLength]) + "..."
}
