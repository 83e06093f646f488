package export

import (
	"fmt"
	"strings"
	"time"
)

// Fixed names inside an export directory.
const (
	ImagesDir        = "images"
	AudioDir         = "audio"
	ManifestFilename = "collection_data.json"
	ReadmeFilename   = "README.txt"
	IndexFilename    = "EXPORT_INDEX.txt"
	AggregatePrefix  = "SpecimenExport_"

	timestampLayout = "2006-01-02_15-04-05"
)

// Media filenames derive from identifiers only, so re-exports produce the same
// names regardless of label edits.

// OverviewFilename names the drawer overview image of a collection.
func OverviewFilename(collectionID string) string {
	return fmt.Sprintf("drawer_overview_%s.jpg", collectionID)
}

// SpecimenPhotoFilename names the nth (1-based) photo of a specimen.
func SpecimenPhotoFilename(specimenID string, n int) string {
	return fmt.Sprintf("specimen_%s_%d.jpg", specimenID, n)
}

// LegacySpecimenPhotoFilename names the single legacy photo.
func LegacySpecimenPhotoFilename(specimenID string) string {
	return fmt.Sprintf("specimen_%s.jpg", specimenID)
}

// FieldBookFilename names the nth (1-based) field-book page of a specimen.
func FieldBookFilename(specimenID string, n int) string {
	return fmt.Sprintf("fieldbook_%s_%d.jpg", specimenID, n)
}

// LegacyFieldBookFilename names the single legacy field-book page.
func LegacyFieldBookFilename(specimenID string) string {
	return fmt.Sprintf("fieldbook_%s.jpg", specimenID)
}

// VoiceFilename names the voice note audio of a specimen.
func VoiceFilename(specimenID string) string {
	return fmt.Sprintf("voice_%s.m4a", specimenID)
}

// DirectoryName builds "<locality>_<yyyy-MM-dd_HH-mm-ss>" with spaces in the
// locality replaced by underscores. Path separators are replaced too so the
// name stays a single path element.
func DirectoryName(locality string, date time.Time, loc *time.Location) string {
	name := strings.TrimSpace(locality)
	if name == "" {
		name = "collection"
	}
	name = strings.NewReplacer(" ", "_", "/", "-", "\\", "-").Replace(name)
	if name == "." || name == ".." {
		name = "collection"
	}
	return name + "_" + Timestamp(date, loc)
}

// Timestamp formats t as yyyy-MM-dd_HH-mm-ss in loc (UTC when nil).
func Timestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampLayout)
}
