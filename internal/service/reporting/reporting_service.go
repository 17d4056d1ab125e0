package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
	repo "github.com/mamadbah2/epharmacy/internal/repository/sheets"
)

const (
	dateLayout      = "2006-01-02"
	DefaultTopN     = 5
	mostScannedSink = "MostScanned!A:D"
)

// PrescriptionSource reads the full prescription history.
type PrescriptionSource interface {
	ListPrescriptions(ctx context.Context) ([]models.Prescription, error)
}

// Catalog provides catalog entries in insertion order.
type Catalog interface {
	ListMedicines(ctx context.Context) ([]models.Medicine, error)
}

// Service computes prescription analytics and exports them to a sheet.
type Service struct {
	prescriptions PrescriptionSource
	catalog       Catalog
	sheet         repo.Repository
	topN          int
	logger        *zap.Logger
}

// NewService wires a new reporting service instance. sheet may be nil when
// export is not configured.
func NewService(prescriptions PrescriptionSource, catalog Catalog, sheet repo.Repository, topN int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Service{prescriptions: prescriptions, catalog: catalog, sheet: sheet, topN: topN, logger: logger}
}

// MostScanned returns the limit most frequently matched names. Each
// prescription counts a name once. Ties keep catalog insertion order; names
// missing from the catalog follow in first-seen order.
func (s *Service) MostScanned(ctx context.Context, limit int) ([]models.MedicineCount, error) {
	if limit <= 0 {
		limit = s.topN
	}

	history, err := s.prescriptions.ListPrescriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prescriptions: %w", err)
	}
	medicines, err := s.catalog.ListMedicines(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	rank := make(map[string]int)
	for _, m := range medicines {
		for _, name := range []string{m.BrandName, m.GenericName} {
			if _, ok := rank[name]; !ok && name != "" {
				rank[name] = len(rank)
			}
		}
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for _, p := range history {
		unique := make(map[string]struct{})
		for _, m := range p.MatchedMedicines {
			name := m.ReportName()
			if name == "" {
				continue
			}
			if _, dup := unique[name]; dup {
				continue
			}
			unique[name] = struct{}{}
			if _, ok := firstSeen[name]; !ok {
				firstSeen[name] = len(firstSeen)
			}
			counts[name]++
		}
	}
	if len(counts) == 0 {
		return nil, apperr.NotFound("no scanned medicines found")
	}

	out := make([]models.MedicineCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.MedicineCount{Name: name, Count: n})
	}
	order := func(name string) (bool, int) {
		if r, ok := rank[name]; ok {
			return false, r
		}
		return true, firstSeen[name]
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		iMissing, iRank := order(out[i].Name)
		jMissing, jRank := order(out[j].Name)
		if iMissing != jMissing {
			return !iMissing
		}
		return iRank < jRank
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ExportWeekly appends the current top-N ranking to the report sheet, one
// row per medicine.
func (s *Service) ExportWeekly(ctx context.Context, now time.Time) error {
	if s.sheet == nil {
		s.logger.Debug("report sheet not configured, skipping export")
		return nil
	}

	ranking, err := s.MostScanned(ctx, s.topN)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.logger.Info("no prescriptions to export yet")
			return nil
		}
		return err
	}

	day := now.Format(dateLayout)
	existing, err := s.sheet.ReadRange(ctx, mostScannedSink)
	if err != nil {
		return apperr.Upstream("report sheet read failed", err)
	}
	for _, row := range existing {
		if len(row) > 0 && fmt.Sprint(row[0]) == day {
			s.logger.Info("report already exported for this date", zap.String("date", day))
			return nil
		}
	}

	rows := make([][]interface{}, 0, len(ranking))
	for i, row := range ranking {
		rows = append(rows, []interface{}{day, i + 1, row.Name, row.Count})
	}
	if err := s.sheet.AppendRows(ctx, mostScannedSink, rows); err != nil {
		return apperr.Upstream("report export failed", err)
	}

	s.logger.Info("weekly report exported", zap.String("date", day), zap.Int("rows", len(ranking)))
	return nil
}
