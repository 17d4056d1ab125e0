package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
)

// LedgerStore is the write side of the catalog and stock ledger.
type LedgerStore interface {
	FindPharmacy(ctx context.Context, id primitive.ObjectID) (*models.Pharmacy, error)
	FindCategoryByName(ctx context.Context, name string) (*models.MedicationCategory, error)
	InsertCategory(ctx context.Context, category models.MedicationCategory) (models.MedicationCategory, error)
	FindMedicine(ctx context.Context, probe models.Medicine) (*models.Medicine, error)
	FindMedicinesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Medicine, error)
	InsertMedicine(ctx context.Context, medicine models.Medicine) (models.Medicine, error)
	InsertStock(ctx context.Context, entry models.StockEntry) (models.StockEntry, error)
	FindStock(ctx context.Context, filter models.StockFilter) ([]models.StockEntry, error)
	ReplaceBatches(ctx context.Context, stockID primitive.ObjectID, batches []models.Batch, at time.Time) (*models.StockEntry, error)
	DeleteStockByMedicine(ctx context.Context, medicineID primitive.ObjectID) (int64, error)
	DeleteMedicine(ctx context.Context, medicineID primitive.ObjectID) error
}

// BatchInput is a batch as submitted by a pharmacy owner.
type BatchInput struct {
	Stock          int    `json:"stock"`
	ExpirationDate string `json:"expirationDate" binding:"required"`
}

// RegisterRequest registers a medicine and its initial batches for a pharmacy.
type RegisterRequest struct {
	GenericName        string       `json:"genericName" binding:"required"`
	BrandName          string       `json:"brandName"`
	DosageStrength     string       `json:"dosageStrength"`
	DosageForm         string       `json:"dosageForm"`
	Classification     string       `json:"classification"`
	Description        string       `json:"description"`
	Category           string       `json:"category"`
	ExpirationPerStock []BatchInput `json:"expirationPerStock"`
}

// Ledger mutates the stock ledger on behalf of pharmacy owners.
type Ledger struct {
	store  LedgerStore
	logger *zap.Logger
	now    func() time.Time
}

// NewLedger wires a ledger service.
func NewLedger(store LedgerStore, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, logger: logger, now: time.Now}
}

// Register find-or-creates the categories and the catalog entry, then
// creates a new stock entry for the pharmacy.
func (l *Ledger) Register(ctx context.Context, pharmacyID primitive.ObjectID, req RegisterRequest) (models.StockEntry, error) {
	if pharmacyID.IsZero() {
		return models.StockEntry{}, apperr.Validation("pharmacy id is required")
	}
	if strings.TrimSpace(req.GenericName) == "" {
		return models.StockEntry{}, apperr.Validation("generic name is required")
	}
	batches, err := parseBatches(req.ExpirationPerStock)
	if err != nil {
		return models.StockEntry{}, err
	}

	pharmacy, err := l.store.FindPharmacy(ctx, pharmacyID)
	if err != nil {
		return models.StockEntry{}, fmt.Errorf("load pharmacy: %w", err)
	}
	if pharmacy == nil {
		return models.StockEntry{}, apperr.NotFound("pharmacy not found")
	}

	categoryIDs := make([]primitive.ObjectID, 0)
	for _, name := range models.SplitCategoryNames(req.Category) {
		category, err := l.ensureCategory(ctx, name)
		if err != nil {
			return models.StockEntry{}, err
		}
		categoryIDs = append(categoryIDs, category.ID)
	}

	probe := models.Medicine{
		GenericName:    strings.TrimSpace(req.GenericName),
		BrandName:      strings.TrimSpace(req.BrandName),
		DosageStrength: strings.TrimSpace(req.DosageStrength),
		DosageForm:     strings.TrimSpace(req.DosageForm),
		Classification: strings.TrimSpace(req.Classification),
		Description:    strings.TrimSpace(req.Description),
		Categories:     categoryIDs,
	}
	medicine, err := l.store.FindMedicine(ctx, probe)
	if err != nil {
		return models.StockEntry{}, fmt.Errorf("lookup medicine: %w", err)
	}
	if medicine == nil {
		created, err := l.store.InsertMedicine(ctx, probe)
		if err != nil {
			return models.StockEntry{}, fmt.Errorf("insert medicine: %w", err)
		}
		medicine = &created
		l.logger.Info("catalog entry created", zap.String("medicine_id", created.ID.Hex()), zap.String("generic_name", created.GenericName))
	}

	entry, err := l.store.InsertStock(ctx, models.StockEntry{
		PharmacyID:   pharmacy.ID,
		MedicineID:   medicine.ID,
		Batches:      batches,
		RecomputedAt: l.now(),
	})
	if err != nil {
		return models.StockEntry{}, fmt.Errorf("insert stock entry: %w", err)
	}
	return entry, nil
}

// Restock replaces the batches of one stock entry.
func (l *Ledger) Restock(ctx context.Context, stockID primitive.ObjectID, inputs []BatchInput) (*models.StockEntry, error) {
	if stockID.IsZero() {
		return nil, apperr.Validation("stock id is required")
	}
	if len(inputs) == 0 {
		return nil, apperr.Validation("expirationPerStock must contain at least one batch")
	}
	batches, err := parseBatches(inputs)
	if err != nil {
		return nil, err
	}

	entry, err := l.store.ReplaceBatches(ctx, stockID, batches, l.now())
	if err != nil {
		return nil, fmt.Errorf("replace batches: %w", err)
	}
	if entry == nil {
		return nil, apperr.NotFound("stock record not found")
	}
	return entry, nil
}

// DeleteMedicine removes a catalog entry and every ledger entry referencing it.
func (l *Ledger) DeleteMedicine(ctx context.Context, medicineID primitive.ObjectID) error {
	if medicineID.IsZero() {
		return apperr.Validation("medicine id is required")
	}
	found, err := l.store.FindMedicinesByIDs(ctx, []primitive.ObjectID{medicineID})
	if err != nil {
		return fmt.Errorf("lookup medicine: %w", err)
	}
	if len(found) == 0 {
		return apperr.NotFound("medicine not found")
	}

	removed, err := l.store.DeleteStockByMedicine(ctx, medicineID)
	if err != nil {
		return fmt.Errorf("delete stock entries: %w", err)
	}
	if err := l.store.DeleteMedicine(ctx, medicineID); err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}

	l.logger.Info("medicine deleted", zap.String("medicine_id", medicineID.Hex()), zap.Int64("stock_entries_removed", removed))
	return nil
}

// ExpiringSummary buckets a pharmacy's stock by how soon it expires,
// counting from the start of today.
func (l *Ledger) ExpiringSummary(ctx context.Context, pharmacyID primitive.ObjectID) (models.ExpiringSummary, error) {
	if pharmacyID.IsZero() {
		return models.ExpiringSummary{}, apperr.Validation("pharmacy id is required")
	}
	entries, err := l.store.FindStock(ctx, models.StockFilter{PharmacyID: pharmacyID})
	if err != nil {
		return models.ExpiringSummary{}, fmt.Errorf("load stock entries: %w", err)
	}

	now := l.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	week := today.AddDate(0, 0, 7)
	month := today.AddDate(0, 1, 0)
	quarter := today.AddDate(0, 3, 0)
	half := today.AddDate(0, 6, 0)

	var summary models.ExpiringSummary
	for _, e := range entries {
		for _, b := range e.Batches {
			exp := b.ExpirationDate
			if exp.Before(today) || b.Quantity <= 0 {
				continue
			}
			if exp.Before(week) {
				summary.ExpiringInWeek += b.Quantity
			}
			if exp.Before(month) {
				summary.ExpiringInMonth += b.Quantity
			}
			if exp.Before(quarter) {
				summary.ExpiringIn3Months += b.Quantity
			}
			if exp.Before(half) {
				summary.ExpiringIn6Months += b.Quantity
			}
		}
	}
	return summary, nil
}

func (l *Ledger) ensureCategory(ctx context.Context, name string) (models.MedicationCategory, error) {
	existing, err := l.store.FindCategoryByName(ctx, name)
	if err != nil {
		return models.MedicationCategory{}, fmt.Errorf("lookup category %q: %w", name, err)
	}
	if existing != nil {
		return *existing, nil
	}
	created, err := l.store.InsertCategory(ctx, models.MedicationCategory{Name: name})
	if errors.Is(err, models.ErrDuplicate) {
		// A concurrent registration created it first.
		existing, err = l.store.FindCategoryByName(ctx, name)
		if err != nil {
			return models.MedicationCategory{}, fmt.Errorf("lookup category %q: %w", name, err)
		}
		if existing == nil {
			return models.MedicationCategory{}, fmt.Errorf("category %q reported duplicate but not found", name)
		}
		l.logger.Debug("category created concurrently, reusing it", zap.String("category", name))
		return *existing, nil
	}
	if err != nil {
		return models.MedicationCategory{}, fmt.Errorf("insert category %q: %w", name, err)
	}
	return created, nil
}

var batchDateLayouts = []string{time.RFC3339, "2006-01-02", "January, 02, 2006", "January 02, 2006"}

func parseBatches(inputs []BatchInput) ([]models.Batch, error) {
	batches := make([]models.Batch, 0, len(inputs))
	for i, in := range inputs {
		if in.Stock < 0 {
			return nil, apperr.Validation(fmt.Sprintf("batch %d: stock must not be negative", i))
		}
		exp, err := parseDate(in.ExpirationDate)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("batch %d: invalid expiration date %q", i, in.ExpirationDate))
		}
		batches = append(batches, models.Batch{Quantity: in.Stock, ExpirationDate: exp})
	}
	return batches, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range batchDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date %q", value)
}
