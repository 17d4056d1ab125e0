package stock

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/epharmacy/internal/domain/models"
	"github.com/mamadbah2/epharmacy/internal/service/matcher"
)

type fakeStore struct {
	medicines  []models.Medicine
	categories []models.MedicationCategory
	pharmacies []models.PharmacyProfile
	entries    []models.StockEntry
	// lostRace makes the next InsertCategory behave as if another writer
	// inserted the same name first.
	lostRace bool
}

func (f *fakeStore) ListMedicines(ctx context.Context) ([]models.Medicine, error) {
	return f.medicines, nil
}

func (f *fakeStore) FindStock(ctx context.Context, filter models.StockFilter) ([]models.StockEntry, error) {
	out := make([]models.StockEntry, 0)
	for _, e := range f.entries {
		if !filter.PharmacyID.IsZero() && e.PharmacyID != filter.PharmacyID {
			continue
		}
		if len(filter.MedicineIDs) > 0 && !containsID(filter.MedicineIDs, e.MedicineID) {
			continue
		}
		cp := e
		cp.Batches = append([]models.Batch(nil), e.Batches...)
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeStore) FindMedicinesByGeneric(ctx context.Context, genericName string) ([]models.Medicine, error) {
	out := make([]models.Medicine, 0)
	for _, m := range f.medicines {
		if strings.EqualFold(m.GenericName, genericName) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) FindMedicinesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Medicine, error) {
	out := make([]models.Medicine, 0)
	for _, m := range f.medicines {
		if containsID(ids, m.ID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) FindPharmacyProfiles(ctx context.Context, ids []primitive.ObjectID) ([]models.PharmacyProfile, error) {
	out := make([]models.PharmacyProfile, 0)
	for _, p := range f.pharmacies {
		if containsID(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) FindPharmacy(ctx context.Context, id primitive.ObjectID) (*models.Pharmacy, error) {
	for _, p := range f.pharmacies {
		if p.ID == id {
			ph := p.Pharmacy
			return &ph, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindCategoryByName(ctx context.Context, name string) (*models.MedicationCategory, error) {
	for _, c := range f.categories {
		if strings.EqualFold(c.Name, name) {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertCategory(ctx context.Context, c models.MedicationCategory) (models.MedicationCategory, error) {
	if f.lostRace {
		f.lostRace = false
		f.categories = append(f.categories, models.MedicationCategory{ID: primitive.NewObjectID(), Name: strings.ToUpper(c.Name)})
		return models.MedicationCategory{}, models.ErrDuplicate
	}
	c.ID = primitive.NewObjectID()
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeStore) FindMedicine(ctx context.Context, probe models.Medicine) (*models.Medicine, error) {
	for _, m := range f.medicines {
		if m.SameEntry(probe) {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertMedicine(ctx context.Context, m models.Medicine) (models.Medicine, error) {
	m.ID = primitive.NewObjectID()
	f.medicines = append(f.medicines, m)
	return m, nil
}

func (f *fakeStore) InsertStock(ctx context.Context, e models.StockEntry) (models.StockEntry, error) {
	e.ID = primitive.NewObjectID()
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeStore) ReplaceBatches(ctx context.Context, id primitive.ObjectID, batches []models.Batch, at time.Time) (*models.StockEntry, error) {
	for i := range f.entries {
		if f.entries[i].ID == id {
			f.entries[i].Batches = batches
			f.entries[i].RecomputedAt = at
			cp := f.entries[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteStockByMedicine(ctx context.Context, medicineID primitive.ObjectID) (int64, error) {
	kept := f.entries[:0]
	var removed int64
	for _, e := range f.entries {
		if e.MedicineID == medicineID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return removed, nil
}

func (f *fakeStore) DeleteMedicine(ctx context.Context, medicineID primitive.ObjectID) error {
	kept := f.medicines[:0]
	for _, m := range f.medicines {
		if m.ID != medicineID {
			kept = append(kept, m)
		}
	}
	f.medicines = kept
	return nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func newResolver(store *fakeStore, now time.Time) *Resolver {
	r := NewResolver(store, matcher.NewService(store, nil), nil)
	r.now = func() time.Time { return now }
	return r
}
