package mongodb_test

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/epharmacy/internal/domain/models"
	"github.com/mamadbah2/epharmacy/internal/repository/mongodb"
	"github.com/mamadbah2/epharmacy/internal/service/expiry"
	"github.com/mamadbah2/epharmacy/internal/service/matcher"
	"github.com/mamadbah2/epharmacy/internal/service/prescriptions"
	"github.com/mamadbah2/epharmacy/internal/service/reporting"
	"github.com/mamadbah2/epharmacy/internal/service/stock"
)

var (
	_ matcher.Catalog              = (*mongodb.Repository)(nil)
	_ stock.Store                  = (*mongodb.Repository)(nil)
	_ stock.LedgerStore            = (*mongodb.Repository)(nil)
	_ expiry.Store                 = (*mongodb.Repository)(nil)
	_ prescriptions.Store          = (*mongodb.Repository)(nil)
	_ reporting.PrescriptionSource = (*mongodb.Repository)(nil)
)

// TestRepositoryRoundTrip runs against a live server when MONGODB_TEST_URI is set.
func TestRepositoryRoundTrip(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := "epharmacy_test_" + primitive.NewObjectID().Hex()
	repo, err := mongodb.NewRepository(ctx, uri, dbName, nil)
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	defer repo.Close(context.Background())
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes() error = %v", err)
	}

	cat, err := repo.InsertCategory(ctx, models.MedicationCategory{Name: "Antibiotic"})
	if err != nil {
		t.Fatalf("InsertCategory() error = %v", err)
	}
	found, err := repo.FindCategoryByName(ctx, "ANTIBIOTIC")
	if err != nil || found == nil || found.ID != cat.ID {
		t.Fatalf("FindCategoryByName() = %+v, %v", found, err)
	}

	med, err := repo.InsertMedicine(ctx, models.Medicine{GenericName: "Amoxicillin", BrandName: "Amoxil", Categories: []primitive.ObjectID{cat.ID}})
	if err != nil {
		t.Fatalf("InsertMedicine() error = %v", err)
	}
	if same, err := repo.FindMedicine(ctx, models.Medicine{GenericName: "Amoxicillin", BrandName: "Amoxil", Categories: []primitive.ObjectID{cat.ID}}); err != nil || same == nil || same.ID != med.ID {
		t.Fatalf("FindMedicine() = %+v, %v", same, err)
	}

	pharmacyID := primitive.NewObjectID()
	expiresAt := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Millisecond)
	entry, err := repo.InsertStock(ctx, models.StockEntry{
		PharmacyID: pharmacyID,
		MedicineID: med.ID,
		Batches:    []models.Batch{{Quantity: 5, ExpirationDate: expiresAt}},
	})
	if err != nil {
		t.Fatalf("InsertStock() error = %v", err)
	}

	updated, err := repo.ReplaceBatches(ctx, entry.ID, []models.Batch{{Quantity: 0, ExpirationDate: expiresAt}}, time.Now().UTC())
	if err != nil || updated == nil || updated.Batches[0].Quantity != 0 {
		t.Fatalf("ReplaceBatches() = %+v, %v", updated, err)
	}
	if missing, err := repo.ReplaceBatches(ctx, primitive.NewObjectID(), nil, time.Now()); err != nil || missing != nil {
		t.Fatalf("ReplaceBatches() on unknown id = %+v, %v", missing, err)
	}

	sweptAt := time.Now().UTC()
	spoiled, err := repo.InsertStock(ctx, models.StockEntry{
		PharmacyID: pharmacyID,
		MedicineID: med.ID,
		Batches: []models.Batch{
			{Quantity: 7, ExpirationDate: sweptAt.Add(-time.Hour).Truncate(time.Millisecond)},
			{Quantity: 9, ExpirationDate: expiresAt},
		},
	})
	if err != nil {
		t.Fatalf("InsertStock() error = %v", err)
	}
	if modified, err := repo.ZeroExpiredBatches(ctx, spoiled.ID, sweptAt); err != nil || !modified {
		t.Fatalf("ZeroExpiredBatches() = %v, %v", modified, err)
	}
	if modified, err := repo.ZeroExpiredBatches(ctx, spoiled.ID, sweptAt); err != nil || modified {
		t.Fatalf("second ZeroExpiredBatches() = %v, %v", modified, err)
	}
	after, err := repo.FindStock(ctx, models.StockFilter{PharmacyID: pharmacyID, MedicineIDs: []primitive.ObjectID{med.ID}})
	if err != nil {
		t.Fatalf("FindStock() error = %v", err)
	}
	for _, e := range after {
		if e.ID != spoiled.ID {
			continue
		}
		if e.Batches[0].Quantity != 0 || e.Batches[1].Quantity != 9 {
			t.Fatalf("unexpected batches after zeroing %+v", e.Batches)
		}
	}

	removed, err := repo.DeleteStockByMedicine(ctx, med.ID)
	if err != nil || removed != 2 {
		t.Fatalf("DeleteStockByMedicine() = %d, %v", removed, err)
	}
}
