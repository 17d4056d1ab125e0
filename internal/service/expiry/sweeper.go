package expiry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/domain/models"
	"github.com/mamadbah2/epharmacy/internal/metrics"
)

// DefaultHorizon is how far ahead the sweep looks for expiring batches.
const DefaultHorizon = 30 * 24 * time.Hour

// ErrNoContact is returned by a Notifier when the owner has no reachable channel.
var ErrNoContact = errors.New("owner has no reachable contact channel")

// Store is the slice of the ledger the sweep reads and updates.
// ZeroExpiredBatches must only touch batches that expired before now, so a
// restock landing between the sweep's read and its write survives.
type Store interface {
	FindStock(ctx context.Context, filter models.StockFilter) ([]models.StockEntry, error)
	FindMedicinesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Medicine, error)
	FindPharmacyProfiles(ctx context.Context, ids []primitive.ObjectID) ([]models.PharmacyProfile, error)
	ZeroExpiredBatches(ctx context.Context, stockID primitive.ObjectID, now time.Time) (bool, error)
}

// Notifier delivers one expiry notice to a pharmacy owner.
type Notifier interface {
	NotifyExpiry(ctx context.Context, notice models.ExpiryNotice) error
}

// Sweeper zeroes expired batches and alerts owners about upcoming expiries.
type Sweeper struct {
	store    Store
	notifier Notifier
	horizon  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewSweeper wires a sweeper. A non-positive horizon falls back to DefaultHorizon.
func NewSweeper(store Store, notifier Notifier, horizon time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Sweeper{store: store, notifier: notifier, horizon: horizon, logger: logger, now: time.Now}
}

// Sweep runs one pass over the whole ledger. Only a failure to read the ledger
// is returned; per-entry and per-pharmacy failures are logged and counted.
func (s *Sweeper) Sweep(ctx context.Context) (models.SweepReport, error) {
	now := s.now()
	report := models.SweepReport{StartedAt: now}

	entries, err := s.store.FindStock(ctx, models.StockFilter{})
	if err != nil {
		return report, fmt.Errorf("load stock entries: %w", err)
	}
	report.EntriesScanned = len(entries)

	medicines, err := s.loadMedicines(ctx, entries)
	if err != nil {
		return report, err
	}

	cutoff := now.Add(s.horizon)
	alerts := make(map[primitive.ObjectID][]models.ExpiryLine)
	var order []primitive.ObjectID

	for _, e := range entries {
		name := e.MedicineID.Hex()
		if med, ok := medicines[e.MedicineID]; ok {
			name = med.DisplayName()
		}

		for _, b := range e.Batches {
			if b.Quantity <= 0 || b.ExpirationDate.After(cutoff) {
				continue
			}
			if _, seen := alerts[e.PharmacyID]; !seen {
				order = append(order, e.PharmacyID)
			}
			alerts[e.PharmacyID] = append(alerts[e.PharmacyID], models.ExpiryLine{
				Medicine:       name,
				Quantity:       b.Quantity,
				ExpirationDate: b.ExpirationDate,
				Expired:        b.Expired(now),
			})
		}

		changed := countExpired(e.Batches, now)
		if changed == 0 {
			continue
		}
		modified, err := s.store.ZeroExpiredBatches(ctx, e.ID, now)
		if err != nil {
			report.Failures++
			s.logger.Error("failed to zero expired batches", zap.String("stock_id", e.ID.Hex()), zap.Error(err))
			continue
		}
		if !modified {
			s.logger.Debug("stock entry changed since read, nothing left to zero", zap.String("stock_id", e.ID.Hex()))
			continue
		}
		report.EntriesUpdated++
		report.BatchesZeroed += changed
		metrics.SweepBatchesZeroed.Add(float64(changed))
	}

	s.dispatch(ctx, now, order, alerts, &report)

	s.logger.Info("expiry sweep finished",
		zap.Int("entries_scanned", report.EntriesScanned),
		zap.Int("entries_updated", report.EntriesUpdated),
		zap.Int("batches_zeroed", report.BatchesZeroed),
		zap.Int("notifications_sent", report.NotificationsSent),
		zap.Int("pharmacies_skipped", report.PharmaciesSkipped),
		zap.Int("failures", report.Failures),
	)
	return report, nil
}

func (s *Sweeper) dispatch(ctx context.Context, now time.Time, order []primitive.ObjectID, alerts map[primitive.ObjectID][]models.ExpiryLine, report *models.SweepReport) {
	if len(order) == 0 {
		return
	}

	profiles, err := s.store.FindPharmacyProfiles(ctx, order)
	if err != nil {
		report.Failures += len(order)
		metrics.ExpiryNotifications.WithLabelValues("failed").Add(float64(len(order)))
		s.logger.Error("failed to load pharmacy profiles for expiry alerts", zap.Error(err))
		return
	}
	byID := make(map[primitive.ObjectID]models.PharmacyProfile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	for _, pharmacyID := range order {
		log := s.logger.With(zap.String("pharmacy_id", pharmacyID.Hex()))

		profile, ok := byID[pharmacyID]
		if !ok || profile.Owner == nil || (profile.Owner.Email == "" && profile.Owner.ContactNumber == "") {
			report.PharmaciesSkipped++
			metrics.ExpiryNotifications.WithLabelValues("skipped").Inc()
			log.Warn("pharmacy has no owner contact, skipping expiry alert")
			continue
		}

		lines := alerts[pharmacyID]
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].ExpirationDate.Before(lines[j].ExpirationDate)
		})
		notice := models.ExpiryNotice{
			PharmacyID: pharmacyID.Hex(),
			OwnerName:  profile.Owner.Name,
			Email:      profile.Owner.Email,
			Phone:      profile.Owner.ContactNumber,
			Lines:      lines,
		}

		err := s.notifier.NotifyExpiry(ctx, notice)
		switch {
		case errors.Is(err, ErrNoContact):
			report.PharmaciesSkipped++
			metrics.ExpiryNotifications.WithLabelValues("skipped").Inc()
			log.Warn("no configured channel reaches the owner, skipping expiry alert")
		case err != nil:
			report.Failures++
			metrics.ExpiryNotifications.WithLabelValues("failed").Inc()
			log.Error("failed to send expiry alert", zap.Error(err))
		default:
			report.NotificationsSent++
			metrics.ExpiryNotifications.WithLabelValues("sent").Inc()
			log.Info("expiry alert sent", zap.Int("lines", len(lines)), zap.Time("swept_at", now))
		}
	}
}

func (s *Sweeper) loadMedicines(ctx context.Context, entries []models.StockEntry) (map[primitive.ObjectID]models.Medicine, error) {
	seen := make(map[primitive.ObjectID]struct{})
	ids := make([]primitive.ObjectID, 0)
	for _, e := range entries {
		if _, ok := seen[e.MedicineID]; ok {
			continue
		}
		seen[e.MedicineID] = struct{}{}
		ids = append(ids, e.MedicineID)
	}

	out := make(map[primitive.ObjectID]models.Medicine, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	medicines, err := s.store.FindMedicinesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load medicines: %w", err)
	}
	for _, m := range medicines {
		out[m.ID] = m
	}
	return out, nil
}

// countExpired returns how many batches expired before now still carry a quantity.
func countExpired(batches []models.Batch, now time.Time) int {
	n := 0
	for _, b := range batches {
		if b.Expired(now) && b.Quantity != 0 {
			n++
		}
	}
	return n
}
