package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MatchSource names the catalog field that produced a match.
type MatchSource string

const (
	MatchedFromGeneric MatchSource = "genericName"
	MatchedFromBrand   MatchSource = "brandName"
)

// Valid reports whether s is one of the known provenances.
func (s MatchSource) Valid() bool {
	return s == MatchedFromGeneric || s == MatchedFromBrand
}

// MatchedMedicine is one catalog hit with its provenance.
type MatchedMedicine struct {
	MedicineID  primitive.ObjectID `bson:"medicine_id,omitempty" json:"medicineId,omitempty"`
	GenericName string             `bson:"generic_name" json:"genericName"`
	BrandName   string             `bson:"brand_name" json:"brandName"`
	MatchedFrom MatchSource        `bson:"matched_from" json:"matchedFrom"`
}

// ReportName is the name a match is counted under: the brand when the match
// came from the brand field, otherwise the generic name.
func (m MatchedMedicine) ReportName() string {
	if m.MatchedFrom == MatchedFromBrand {
		return m.BrandName
	}
	return m.GenericName
}

type matchKey struct {
	generic, brand string
	from           MatchSource
}

// DedupeMatches collapses repeated matches per provenance, keeping the first
// occurrence order.
func DedupeMatches(matches []MatchedMedicine) []MatchedMedicine {
	seen := make(map[matchKey]struct{}, len(matches))
	out := make([]MatchedMedicine, 0, len(matches))
	for _, m := range matches {
		key := matchKey{generic: m.GenericName, brand: m.BrandName, from: m.MatchedFrom}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Prescription is the immutable record of one scan-and-match.
type Prescription struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OriginalImageURL  string             `bson:"original_image_url" json:"originalImageUrl"`
	ProcessedImageURL string             `bson:"processed_image_url" json:"processedImageUrl"`
	OCRText           string             `bson:"ocr_text" json:"ocrText"`
	MatchedMedicines  []MatchedMedicine  `bson:"matched_medicines" json:"matchedMedicines"`
	CustomerID        primitive.ObjectID `bson:"customer_id" json:"customerId"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
}
