package export

import (
	"encoding/json"
	"specimencore/pkg/domain"
	"time"
)

// ExportVersion is written into every manifest.
const ExportVersion = "1.0"

// Manifest is the collection_data.json document. Fields are declared in
// alphabetical JSON key order so the encoder emits sorted keys.
type Manifest struct {
	CollectionDate              string             `json:"collectionDate"`
	CollectorName               string             `json:"collectorName"`
	DrawerOverviewImageFilename *string            `json:"drawerOverviewImageFilename"`
	ExportDate                  string             `json:"exportDate"`
	ExportVersion               string             `json:"exportVersion"`
	ID                          string             `json:"id"`
	IsComplete                  bool               `json:"isComplete"`
	Locality                    string             `json:"locality"`
	Specimens                   []SpecimenManifest `json:"specimens"`
}

// SpecimenManifest describes one specimen. Media appear as filenames only.
type SpecimenManifest struct {
	City                    string   `json:"city"`
	Country                 string   `json:"country"`
	FieldBookImageFilename  *string  `json:"fieldBookImageFilename"`
	FieldBookImageFilenames []string `json:"fieldBookImageFilenames"`
	ID                      string   `json:"id"`
	IsComplete              bool     `json:"isComplete"`
	Latitude                *float64 `json:"latitude"`
	Longitude               *float64 `json:"longitude"`
	MineralType             string   `json:"mineralType"`
	Notes                   string   `json:"notes"`
	OCRConfidence           float64  `json:"ocrConfidence"`
	OCRText                 string   `json:"ocrText"`
	QualityScore            float64  `json:"qualityScore"`
	SpecimenID              string   `json:"specimenID"`
	SpecimenImageFilenames  []string `json:"specimenImageFilenames"`
	State                   string   `json:"state"`
	StromatoliteAge         string   `json:"stromatoliteAge"`
	StructureType           string   `json:"structureType"`
	VoiceNoteFilename       *string  `json:"voiceNoteFilename"`
	VoiceNoteTranscription  string   `json:"voiceNoteTranscription"`
}

// specimenFiles holds the filenames chosen for one specimen's media.
type specimenFiles struct {
	photos     []string
	pages      []string
	legacyPage *string
	voice      *string
}

func isoUTC(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func buildManifest(c domain.Collection, overview *string, files map[string]specimenFiles, exportedAt time.Time) Manifest {
	m := Manifest{
		CollectionDate:              isoUTC(c.CollectionDate),
		CollectorName:               c.CollectorName,
		DrawerOverviewImageFilename: overview,
		ExportDate:                  isoUTC(exportedAt),
		ExportVersion:               ExportVersion,
		ID:                          c.ID,
		IsComplete:                  c.IsComplete,
		Locality:                    c.Locality,
		Specimens:                   make([]SpecimenManifest, 0, len(c.Specimens)),
	}
	for _, sp := range c.Specimens {
		f := files[sp.ID]
		photos := f.photos
		if photos == nil {
			photos = []string{}
		}
		pages := f.pages
		if pages == nil {
			pages = []string{}
		}
		m.Specimens = append(m.Specimens, SpecimenManifest{
			City:                    sp.City,
			Country:                 sp.Country,
			FieldBookImageFilename:  f.legacyPage,
			FieldBookImageFilenames: pages,
			ID:                      sp.ID,
			IsComplete:              sp.IsComplete,
			Latitude:                sp.Latitude,
			Longitude:               sp.Longitude,
			MineralType:             sp.MineralType.String(),
			Notes:                   sp.Notes,
			OCRConfidence:           sp.OCRConfidence,
			OCRText:                 sp.OCRText,
			QualityScore:            sp.QualityScore,
			SpecimenID:              sp.Label,
			SpecimenImageFilenames:  photos,
			State:                   sp.State,
			StromatoliteAge:         sp.Age,
			StructureType:           sp.StructureType.String(),
			VoiceNoteFilename:       f.voice,
			VoiceNoteTranscription:  sp.Transcript(),
		})
	}
	return m
}

func (m Manifest) encode() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
