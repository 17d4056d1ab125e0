package models

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Medicine is one canonical catalog entry.
type Medicine struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	GenericName    string               `bson:"generic_name" json:"genericName"`
	BrandName      string               `bson:"brand_name" json:"brandName"`
	DosageStrength string               `bson:"dosage_strength" json:"dosageStrength"`
	DosageForm     string               `bson:"dosage_form" json:"dosageForm"`
	Classification string               `bson:"classification" json:"classification"`
	Description    string               `bson:"description,omitempty" json:"description,omitempty"`
	Categories     []primitive.ObjectID `bson:"categories" json:"categories"`
}

// DisplayName renders the medicine the way pharmacy owners read it in alerts.
func (m Medicine) DisplayName() string {
	switch {
	case m.BrandName != "" && m.GenericName != "":
		return m.BrandName + " (" + m.GenericName + ")"
	case m.BrandName != "":
		return m.BrandName
	default:
		return m.GenericName
	}
}

// SameEntry reports whether two medicines share every descriptive field. The
// catalog is de-duplicated on this identity.
func (m Medicine) SameEntry(other Medicine) bool {
	if m.GenericName != other.GenericName ||
		m.BrandName != other.BrandName ||
		m.DosageStrength != other.DosageStrength ||
		m.DosageForm != other.DosageForm ||
		m.Classification != other.Classification ||
		m.Description != other.Description ||
		len(m.Categories) != len(other.Categories) {
		return false
	}
	for i := range m.Categories {
		if m.Categories[i] != other.Categories[i] {
			return false
		}
	}
	return true
}

// MedicationCategory groups catalog entries. Names are unique ignoring case.
// ErrDuplicate is returned by stores when a unique key already exists.
var ErrDuplicate = errors.New("record already exists")

type MedicationCategory struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// SplitCategoryNames turns a "Antibiotic / Penicillin" style input into clean
// category names with inner whitespace collapsed. Blank segments are dropped.
func SplitCategoryNames(raw string) []string {
	parts := strings.Split(raw, "/")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.Join(strings.Fields(part), " ")
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
