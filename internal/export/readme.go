package export

import (
	"fmt"
	"specimencore/pkg/domain"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

func buildReadme(c domain.Collection, exportedAt time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Specimen Collection Export\n")
	fmt.Fprintf(&b, "==========================\n\n")
	fmt.Fprintf(&b, "Locality:        %s\n", c.Locality)
	fmt.Fprintf(&b, "Collector:       %s\n", c.CollectorName)
	fmt.Fprintf(&b, "Collection date: %s\n", isoUTC(c.CollectionDate))
	fmt.Fprintf(&b, "Collection ID:   %s\n", c.ID)
	fmt.Fprintf(&b, "Specimens:       %d\n", len(c.Specimens))
	fmt.Fprintf(&b, "Exported:        %s (format %s)\n\n", isoUTC(exportedAt), ExportVersion)

	b.WriteString(`Layout
------
collection_data.json   Collection and specimen metadata (JSON, sorted keys).
README.txt             This file.
images/                Photographs (JPEG).
audio/                 Voice notes (M4A).

Naming
------
Files are named by UUID so names never change when labels are edited.
  images/drawer_overview_<collectionId>.jpg   drawer overview photograph
  images/specimen_<specimenId>_<n>.jpg        specimen photographs, n = 1..5
  images/specimen_<specimenId>.jpg            single photograph from older records
  images/fieldbook_<specimenId>_<n>.jpg       field book pages, n = 1..
  images/fieldbook_<specimenId>.jpg           single field book page from older records
  audio/voice_<specimenId>.m4a                voice annotation

The "id" of each specimen in collection_data.json is the UUID used in its
filenames; "specimenID" is the label written on the specimen.

Suggested processing
--------------------
1. Parse collection_data.json.
2. Run OCR over field book pages and any photographs whose ocrText is empty
   or whose ocrConfidence is below 0.8.
3. Transcribe audio/voice_*.m4a where voiceNoteTranscription is empty or
   incomplete.
4. Cross-reference every result with the metadata by specimen UUID.
`)
	return []byte(b.String())
}

type indexEntry struct {
	collection domain.Collection
	dir        string
	err        string
}

func buildIndex(entries []indexEntry, exportedAt time.Time, files int, bytes int64) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Specimen Export Index\n")
	fmt.Fprintf(&b, "=====================\n\n")
	fmt.Fprintf(&b, "Exported:    %s\n", isoUTC(exportedAt))
	fmt.Fprintf(&b, "Collections: %d\n", len(entries))
	fmt.Fprintf(&b, "Files:       %s\n", humanize.Comma(int64(files)))
	fmt.Fprintf(&b, "Total size:  %s\n\n", humanize.Bytes(uint64(bytes)))
	for i, e := range entries {
		c := e.collection
		status := "in progress"
		if c.IsComplete {
			status = "complete"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Locality)
		fmt.Fprintf(&b, "   Collector: %s\n", c.CollectorName)
		fmt.Fprintf(&b, "   Date:      %s\n", isoUTC(c.CollectionDate))
		fmt.Fprintf(&b, "   Specimens: %d\n", len(c.Specimens))
		fmt.Fprintf(&b, "   Status:    %s\n", status)
		if e.err != "" {
			fmt.Fprintf(&b, "   Directory: (not exported: %s)\n\n", e.err)
			continue
		}
		fmt.Fprintf(&b, "   Directory: %s\n\n", e.dir)
	}
	return []byte(b.String())
}
