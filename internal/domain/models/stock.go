package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Batch is one (quantity, expiration date) pair of a stock entry.
type Batch struct {
	Quantity       int       `bson:"quantity" json:"stock"`
	ExpirationDate time.Time `bson:"expiration_date" json:"expirationDate"`
}

// Expired reports whether the batch expired strictly before now.
func (b Batch) Expired(now time.Time) bool {
	return b.ExpirationDate.Before(now)
}

// Available is the quantity the batch contributes to reads made at now.
func (b Batch) Available(now time.Time) int {
	if b.Expired(now) || b.Quantity < 0 {
		return 0
	}
	return b.Quantity
}

// StockEntry is the ledger record of one medicine at one pharmacy.
type StockEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PharmacyID   primitive.ObjectID `bson:"pharmacy_id" json:"pharmacyId"`
	MedicineID   primitive.ObjectID `bson:"medicine_id" json:"medicineId"`
	Batches      []Batch            `bson:"batches" json:"expirationPerStock"`
	RecomputedAt time.Time          `bson:"recomputed_at" json:"timeStamps"`
}

// AvailableQuantity sums the non-expired batches as seen at now. Batches are
// never modified by the read.
func (e StockEntry) AvailableQuantity(now time.Time) int {
	total := 0
	for _, b := range e.Batches {
		total += b.Available(now)
	}
	return total
}

// StockFilter narrows ledger lookups. Zero values are ignored.
type StockFilter struct {
	MedicineIDs []primitive.ObjectID
	PharmacyID  primitive.ObjectID
}
