package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxSpecimenPhotos is the hard cap on photographs per specimen.
const MaxSpecimenPhotos = 5

// VoiceNote pairs a recorded audio blob with its transcript. It is replaced as a
// whole, never edited in place.
type VoiceNote struct {
	Audio      []byte `json:"audio,omitempty"`
	Transcript string `json:"transcript"`
}

// Specimen is one physical specimen documented within a collection.
type Specimen struct {
	ID                  string        `json:"id"`
	Label               string        `json:"label"`
	StructureType       StructureType `json:"structure_type"`
	MineralType         MineralType   `json:"mineral_type"`
	Age                 string        `json:"age"`
	Country             string        `json:"country"`
	State               string        `json:"state"`
	City                string        `json:"city"`
	Latitude            *float64      `json:"latitude,omitempty"`
	Longitude           *float64      `json:"longitude,omitempty"`
	Notes               string        `json:"notes"`
	Photos              [][]byte      `json:"photos,omitempty"`
	FieldBookPages      [][]byte      `json:"field_book_pages,omitempty"`
	LegacyPhoto         []byte        `json:"legacy_photo,omitempty"`
	LegacyFieldBookPage []byte        `json:"legacy_field_book_page,omitempty"`
	VoiceNote           *VoiceNote    `json:"voice_note,omitempty"`
	OCRText             string        `json:"ocr_text"`
	OCRConfidence       float64       `json:"ocr_confidence"`
	QualityScore        float64       `json:"quality_score"`
	IsComplete          bool          `json:"is_complete"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// NewSpecimen returns an empty specimen with default classifications.
func NewSpecimen(id string) Specimen {
	return Specimen{ID: id, StructureType: StructureUnknown, MineralType: MineralUnknown}
}

// AddPhoto appends a photograph unless the cap is reached. It reports whether
// the photograph was kept.
func (s *Specimen) AddPhoto(data []byte) bool {
	if len(data) == 0 || len(s.Photos) >= MaxSpecimenPhotos {
		return false
	}
	s.Photos = append(s.Photos, cloneBytes(data))
	return true
}

// RemovePhotoAt drops the photograph at index; stale indexes are ignored.
func (s *Specimen) RemovePhotoAt(index int) {
	s.Photos = removeAt(s.Photos, index)
}

// AddFieldBookPage appends a field-book page photograph.
func (s *Specimen) AddFieldBookPage(data []byte) {
	if len(data) == 0 {
		return
	}
	s.FieldBookPages = append(s.FieldBookPages, cloneBytes(data))
}

// RemoveFieldBookPageAt drops the page at index; stale indexes are ignored.
func (s *Specimen) RemoveFieldBookPageAt(index int) {
	s.FieldBookPages = removeAt(s.FieldBookPages, index)
}

// SetVoiceNote replaces audio and transcript together.
func (s *Specimen) SetVoiceNote(audio []byte, transcript string) {
	s.VoiceNote = &VoiceNote{Audio: cloneBytes(audio), Transcript: transcript}
}

// ClearVoiceNote removes the voice note.
func (s *Specimen) ClearVoiceNote() { s.VoiceNote = nil }

// HasVoiceNote reports whether recorded audio is attached.
func (s Specimen) HasVoiceNote() bool { return s.VoiceNote != nil && len(s.VoiceNote.Audio) > 0 }

// Transcript returns the voice note transcript or "".
func (s Specimen) Transcript() string {
	if s.VoiceNote == nil {
		return ""
	}
	return s.VoiceNote.Transcript
}

// SetOCR stores recognised text with its confidence clamped to [0,1].
func (s *Specimen) SetOCR(text string, confidence float64) {
	s.OCRText = text
	s.OCRConfidence = clamp(confidence, 0, 1)
}

// SetCoordinates parses decimal latitude and longitude. Two blank values clear
// the coordinates. Invalid input leaves the current values untouched and
// returns false.
func (s *Specimen) SetCoordinates(lat, lon string) bool {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" && lon == "" {
		s.Latitude, s.Longitude = nil, nil
		return true
	}
	la, ok := ParseCoordinate(lat, 90)
	if !ok {
		return false
	}
	lo, ok := ParseCoordinate(lon, 180)
	if !ok {
		return false
	}
	s.Latitude, s.Longitude = &la, &lo
	return true
}

// ParseCoordinate parses a decimal degree value bounded by ±limit.
func ParseCoordinate(raw string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v < -limit || v > limit {
		return 0, false
	}
	return v, true
}

// HasCoordinates reports whether both latitude and longitude are set.
func (s Specimen) HasCoordinates() bool { return s.Latitude != nil && s.Longitude != nil }

// HasPhotos prefers the photo sequence and falls back to the legacy single photo.
func (s Specimen) HasPhotos() bool {
	if len(s.Photos) > 0 {
		return true
	}
	return len(s.LegacyPhoto) > 0
}

// HasFieldBook prefers the page sequence and falls back to the legacy single page.
func (s Specimen) HasFieldBook() bool {
	if len(s.FieldBookPages) > 0 {
		return true
	}
	return len(s.LegacyFieldBookPage) > 0
}

// Score derives the completeness-based quality score in [0,10].
func (s Specimen) Score() float64 {
	var score float64
	photos := len(s.Photos)
	if photos == 0 && len(s.LegacyPhoto) > 0 {
		photos = 1
	}
	if photos > 0 {
		score += 2 + 0.5*float64(photos-1)
	}
	if strings.TrimSpace(s.Label) != "" {
		score++
	}
	if s.StructureType.Known() {
		score++
	}
	if s.MineralType.Known() {
		score++
	}
	if strings.TrimSpace(s.Age) != "" {
		score += 0.5
	}
	if strings.TrimSpace(s.Country+s.State+s.City) != "" {
		score += 0.5
	}
	if s.HasCoordinates() {
		score += 0.5
	}
	if s.HasFieldBook() {
		score++
	}
	if s.HasVoiceNote() {
		score += 0.5
	}
	return clamp(score, 0, 10)
}

// Clone returns a deep copy of the specimen including media buffers.
func (s Specimen) Clone() Specimen {
	cp := s
	cp.Photos = cloneBlobs(s.Photos)
	cp.FieldBookPages = cloneBlobs(s.FieldBookPages)
	cp.LegacyPhoto = cloneBytes(s.LegacyPhoto)
	cp.LegacyFieldBookPage = cloneBytes(s.LegacyFieldBookPage)
	if s.VoiceNote != nil {
		vn := VoiceNote{Audio: cloneBytes(s.VoiceNote.Audio), Transcript: s.VoiceNote.Transcript}
		cp.VoiceNote = &vn
	}
	if s.Latitude != nil {
		v := *s.Latitude
		cp.Latitude = &v
	}
	if s.Longitude != nil {
		v := *s.Longitude
		cp.Longitude = &v
	}
	return cp
}

func removeAt(in [][]byte, index int) [][]byte {
	if index < 0 || index >= len(in) {
		return in
	}
	out := make([][]byte, 0, len(in)-1)
	out = append(out, in[:index]...)
	return append(out, in[index+1:]...)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
