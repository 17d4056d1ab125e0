package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
	"github.com/mamadbah2/epharmacy/internal/service/matcher"
)

const (
	unknownPharmacy = "Unknown Pharmacy"
	notAvailable    = "Not Available"
)

// Store is the read side of the ledger, catalog and pharmacy directory.
type Store interface {
	FindStock(ctx context.Context, filter models.StockFilter) ([]models.StockEntry, error)
	FindMedicinesByGeneric(ctx context.Context, genericName string) ([]models.Medicine, error)
	FindPharmacyProfiles(ctx context.Context, ids []primitive.ObjectID) ([]models.PharmacyProfile, error)
}

// NameMatcher resolves raw names to catalog entries.
type NameMatcher interface {
	MatchNames(ctx context.Context, names []string) ([]matcher.Hit, error)
}

// Address is the denormalized street address of a pharmacy.
type Address struct {
	Street   string `json:"street"`
	Barangay string `json:"barangay"`
	City     string `json:"city"`
}

// PharmacyInfo is the contact card attached to availability results.
type PharmacyInfo struct {
	ID            primitive.ObjectID `json:"id"`
	Name          string             `json:"name"`
	Address       Address            `json:"address"`
	ContactNumber string             `json:"contactNumber"`
	Latitude      float64            `json:"latitude"`
	Longitude     float64            `json:"longitude"`
	BusinessDays  string             `json:"businessDays"`
	OpeningHour   string             `json:"openingHour"`
	ClosingHour   string             `json:"closingHour"`
}

// Variant is one dosage/classification of a medicine stocked by a pharmacy.
type Variant struct {
	StockID            primitive.ObjectID `json:"stockId"`
	MedicineID         primitive.ObjectID `json:"medicineId"`
	GenericName        string             `json:"genericName"`
	BrandName          string             `json:"brandName"`
	DosageStrength     string             `json:"dosageStrength"`
	DosageForm         string             `json:"dosageForm"`
	Classification     string             `json:"classification"`
	Stock              int                `json:"stock"`
	ExpirationPerStock []models.Batch     `json:"expirationPerStock"`
}

// MedicineIndex lists a pharmacy's variants keyed by generic and by brand name.
type MedicineIndex struct {
	ByGeneric map[string][]Variant `json:"byGeneric"`
	ByBrand   map[string][]Variant `json:"byBrand"`
}

// Availability is one pharmacy's resolved stock for the requested medicines.
type Availability struct {
	Pharmacy      PharmacyInfo  `json:"pharmacy"`
	Medicines     MedicineIndex `json:"medicines"`
	TotalQuantity int           `json:"totalQuantity"`
}

// EntryView is a ledger entry with its available quantity computed at read time.
type EntryView struct {
	ID                primitive.ObjectID `json:"id"`
	Medicine          models.Medicine    `json:"medicine"`
	Pharmacy          PharmacyInfo       `json:"pharmacy"`
	Batches           []models.Batch     `json:"expirationPerStock"`
	AvailableQuantity int                `json:"availableQuantity"`
	RecomputedAt      time.Time          `json:"timeStamps"`
}

// PharmacyStock is one pharmacy's holding of a generic medicine.
type PharmacyStock struct {
	Pharmacy           PharmacyInfo      `json:"pharmacy"`
	Medicines          []models.Medicine `json:"medicines"`
	TotalStock         int               `json:"totalStock"`
	ExpirationPerStock []models.Batch    `json:"expirationPerStock"`
	RecomputedAt       time.Time         `json:"timeStamps"`
}

// GenericAvailability aggregates a generic medicine across every pharmacy.
type GenericAvailability struct {
	TotalStock      int             `json:"totalStock"`
	LatestTimestamp time.Time       `json:"latestTimestamp"`
	Pharmacies      []PharmacyStock `json:"data"`
}

// Resolver turns matched medicines into expiry-aware pharmacy availability.
// Expiry is applied as a read-time projection; stored batches are never
// changed here.
type Resolver struct {
	store   Store
	matcher NameMatcher
	logger  *zap.Logger
	now     func() time.Time
}

// NewResolver wires a resolver.
func NewResolver(store Store, matcher NameMatcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, matcher: matcher, logger: logger, now: time.Now}
}

// ResolveNames finds every pharmacy holding non-expired stock of any catalog
// entry matching names.
func (r *Resolver) ResolveNames(ctx context.Context, names []string) ([]Availability, error) {
	hits, err := r.matcher.MatchNames(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, apperr.NotFound("no medicines found")
	}

	medicines := make(map[primitive.ObjectID]models.Medicine, len(hits))
	ids := make([]primitive.ObjectID, 0, len(hits))
	for _, h := range hits {
		if _, ok := medicines[h.Medicine.ID]; ok {
			continue
		}
		medicines[h.Medicine.ID] = h.Medicine
		ids = append(ids, h.Medicine.ID)
	}

	return r.ResolveMedicines(ctx, ids, medicines)
}

// ResolveMedicines resolves availability for already matched catalog
// entries. medicines must contain every id.
func (r *Resolver) ResolveMedicines(ctx context.Context, ids []primitive.ObjectID, medicines map[primitive.ObjectID]models.Medicine) ([]Availability, error) {
	entries, err := r.store.FindStock(ctx, models.StockFilter{MedicineIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("load stock entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, apperr.NotFound("no pharmacies found with the requested medicines")
	}

	profiles, err := r.loadProfiles(ctx, entries)
	if err != nil {
		return nil, err
	}

	idx := buildIndex(entries, medicines, profiles, r.now())
	results := idx.available()
	if len(results) == 0 {
		return nil, apperr.NotFound("requested medicines are out of stock or expired at every pharmacy")
	}

	r.logger.Debug("resolved pharmacy availability",
		zap.Int("medicines", len(ids)),
		zap.Int("entries", len(entries)),
		zap.Int("pharmacies", len(results)))
	return results, nil
}

// ResolveGenericAtPharmacy lists the variants of genericName stocked at one pharmacy.
func (r *Resolver) ResolveGenericAtPharmacy(ctx context.Context, genericName string, pharmacyID primitive.ObjectID) ([]EntryView, error) {
	genericName = strings.TrimSpace(genericName)
	if genericName == "" {
		return nil, apperr.Validation("generic name is required")
	}
	if pharmacyID.IsZero() {
		return nil, apperr.Validation("pharmacy id is required")
	}

	medicines, err := r.genericMedicines(ctx, genericName)
	if err != nil {
		return nil, err
	}

	entries, err := r.store.FindStock(ctx, models.StockFilter{MedicineIDs: keys(medicines), PharmacyID: pharmacyID})
	if err != nil {
		return nil, fmt.Errorf("load stock entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, apperr.NotFound("no stock found for this medicine at the given pharmacy")
	}

	profiles, err := r.loadProfiles(ctx, entries)
	if err != nil {
		return nil, err
	}

	now := r.now()
	views := make([]EntryView, 0, len(entries))
	total := 0
	for _, e := range entries {
		qty := e.AvailableQuantity(now)
		total += qty
		views = append(views, EntryView{
			ID:                e.ID,
			Medicine:          medicines[e.MedicineID],
			Pharmacy:          pharmacyInfo(e.PharmacyID, profiles[e.PharmacyID]),
			Batches:           e.Batches,
			AvailableQuantity: qty,
			RecomputedAt:      e.RecomputedAt,
		})
	}
	if total == 0 {
		return nil, apperr.NotFound("medicine is out of stock or expired at the given pharmacy")
	}
	return views, nil
}

// ResolveGeneric aggregates genericName across all pharmacies.
func (r *Resolver) ResolveGeneric(ctx context.Context, genericName string) (*GenericAvailability, error) {
	genericName = strings.TrimSpace(genericName)
	if genericName == "" {
		return nil, apperr.Validation("generic name is required")
	}

	medicines, err := r.genericMedicines(ctx, genericName)
	if err != nil {
		return nil, err
	}

	entries, err := r.store.FindStock(ctx, models.StockFilter{MedicineIDs: keys(medicines)})
	if err != nil {
		return nil, fmt.Errorf("load stock entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, apperr.NotFound("no pharmacy stocks found for this medicine")
	}

	profiles, err := r.loadProfiles(ctx, entries)
	if err != nil {
		return nil, err
	}

	now := r.now()
	out := &GenericAvailability{Pharmacies: make([]PharmacyStock, 0)}
	byPharmacy := make(map[primitive.ObjectID]int)
	for _, e := range entries {
		if e.RecomputedAt.After(out.LatestTimestamp) {
			out.LatestTimestamp = e.RecomputedAt
		}
		pos, ok := byPharmacy[e.PharmacyID]
		if !ok {
			pos = len(out.Pharmacies)
			byPharmacy[e.PharmacyID] = pos
			out.Pharmacies = append(out.Pharmacies, PharmacyStock{Pharmacy: pharmacyInfo(e.PharmacyID, profiles[e.PharmacyID])})
		}
		ps := &out.Pharmacies[pos]
		ps.Medicines = append(ps.Medicines, medicines[e.MedicineID])
		ps.TotalStock += e.AvailableQuantity(now)
		ps.ExpirationPerStock = append(ps.ExpirationPerStock, e.Batches...)
		if e.RecomputedAt.After(ps.RecomputedAt) {
			ps.RecomputedAt = e.RecomputedAt
		}
	}

	kept := out.Pharmacies[:0]
	for _, ps := range out.Pharmacies {
		if ps.TotalStock == 0 {
			continue
		}
		out.TotalStock += ps.TotalStock
		kept = append(kept, ps)
	}
	out.Pharmacies = kept
	if len(out.Pharmacies) == 0 {
		return nil, apperr.NotFound("medicine is out of stock or expired at every pharmacy")
	}
	return out, nil
}

func (r *Resolver) genericMedicines(ctx context.Context, genericName string) (map[primitive.ObjectID]models.Medicine, error) {
	list, err := r.store.FindMedicinesByGeneric(ctx, genericName)
	if err != nil {
		return nil, fmt.Errorf("load medicines by generic name: %w", err)
	}
	if len(list) == 0 {
		return nil, apperr.NotFound("no medicines found for this generic name")
	}
	out := make(map[primitive.ObjectID]models.Medicine, len(list))
	for _, m := range list {
		out[m.ID] = m
	}
	return out, nil
}

func (r *Resolver) loadProfiles(ctx context.Context, entries []models.StockEntry) (map[primitive.ObjectID]models.PharmacyProfile, error) {
	seen := make(map[primitive.ObjectID]struct{})
	ids := make([]primitive.ObjectID, 0)
	for _, e := range entries {
		if _, ok := seen[e.PharmacyID]; ok {
			continue
		}
		seen[e.PharmacyID] = struct{}{}
		ids = append(ids, e.PharmacyID)
	}

	list, err := r.store.FindPharmacyProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load pharmacy profiles: %w", err)
	}
	out := make(map[primitive.ObjectID]models.PharmacyProfile, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func keys(m map[primitive.ObjectID]models.Medicine) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
