package stock

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/epharmacy/internal/domain/models"
)

// index groups one resolution call's ledger entries as
// pharmacyID -> {byGeneric, byBrand}. It is built once per call.
type index struct {
	order      []primitive.ObjectID
	pharmacies map[primitive.ObjectID]*Availability
}

func buildIndex(entries []models.StockEntry, medicines map[primitive.ObjectID]models.Medicine, profiles map[primitive.ObjectID]models.PharmacyProfile, now time.Time) *index {
	idx := &index{pharmacies: make(map[primitive.ObjectID]*Availability)}

	for _, e := range entries {
		med, ok := medicines[e.MedicineID]
		if !ok {
			continue
		}
		profile, ok := profiles[e.PharmacyID]
		if !ok {
			// Ledger entry points at a pharmacy that no longer exists.
			continue
		}

		avail := idx.pharmacies[e.PharmacyID]
		if avail == nil {
			avail = &Availability{
				Pharmacy: pharmacyInfo(e.PharmacyID, profile),
				Medicines: MedicineIndex{
					ByGeneric: make(map[string][]Variant),
					ByBrand:   make(map[string][]Variant),
				},
			}
			idx.pharmacies[e.PharmacyID] = avail
			idx.order = append(idx.order, e.PharmacyID)
		}

		v := Variant{
			StockID:            e.ID,
			MedicineID:         med.ID,
			GenericName:        med.GenericName,
			BrandName:          med.BrandName,
			DosageStrength:     med.DosageStrength,
			DosageForm:         med.DosageForm,
			Classification:     med.Classification,
			Stock:              e.AvailableQuantity(now),
			ExpirationPerStock: append([]models.Batch(nil), e.Batches...),
		}
		avail.Medicines.ByGeneric[med.GenericName] = append(avail.Medicines.ByGeneric[med.GenericName], v)
		avail.Medicines.ByBrand[med.BrandName] = append(avail.Medicines.ByBrand[med.BrandName], v)
		avail.TotalQuantity += v.Stock
	}

	return idx
}

// lookup returns the indexed availability of one pharmacy.
func (idx *index) lookup(pharmacyID primitive.ObjectID) (*Availability, bool) {
	a, ok := idx.pharmacies[pharmacyID]
	return a, ok
}

// available returns pharmacies with a positive total, in first-seen order.
func (idx *index) available() []Availability {
	out := make([]Availability, 0, len(idx.order))
	for _, id := range idx.order {
		a := idx.pharmacies[id]
		if a.TotalQuantity <= 0 {
			continue
		}
		out = append(out, *a)
	}
	return out
}

func pharmacyInfo(id primitive.ObjectID, p models.PharmacyProfile) PharmacyInfo {
	info := PharmacyInfo{
		ID:           id,
		Name:         unknownPharmacy,
		BusinessDays: orDefault(p.BusinessDays, notAvailable),
		OpeningHour:  orDefault(p.OpeningHour, notAvailable),
		ClosingHour:  orDefault(p.ClosingHour, notAvailable),
	}
	if p.Location != nil {
		info.Latitude = p.Location.Latitude
		info.Longitude = p.Location.Longitude
	}
	if p.Owner != nil {
		info.Name = orDefault(p.Owner.Name, unknownPharmacy)
		info.Address = Address{Street: p.Owner.Street, Barangay: p.Owner.Barangay, City: p.Owner.City}
		info.ContactNumber = p.Owner.ContactNumber
	}
	return info
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
