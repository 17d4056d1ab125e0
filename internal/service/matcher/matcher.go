package matcher

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
)

// Catalog is the read side of the medicine catalog.
type Catalog interface {
	ListMedicines(ctx context.Context) ([]models.Medicine, error)
}

// Service matches text and name lists against the catalog. It never writes
// to the catalog.
type Service struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewService wires a matcher over catalog.
func NewService(catalog Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, logger: logger}
}

// MatchText records every catalog entry whose brand or generic name appears
// in text, ignoring case. Brand wins when both appear.
func (s *Service) MatchText(ctx context.Context, text string) ([]models.MatchedMedicine, error) {
	medicines, err := s.catalog.ListMedicines(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	haystack := strings.ToLower(text)
	contains := func(name string) bool {
		name = strings.ToLower(strings.TrimSpace(name))
		return name != "" && strings.Contains(haystack, name)
	}

	matches := make([]models.MatchedMedicine, 0)
	for _, med := range medicines {
		switch {
		case contains(med.BrandName):
			matches = append(matches, toMatch(med, models.MatchedFromBrand))
		case contains(med.GenericName):
			matches = append(matches, toMatch(med, models.MatchedFromGeneric))
		}
	}

	matches = models.DedupeMatches(matches)
	s.logger.Debug("matched freeform text", zap.Int("catalog_size", len(medicines)), zap.Int("matches", len(matches)))
	return matches, nil
}

// MatchNames returns every catalog entry whose brand or generic name matches
// any of names literally, ignoring case. Each catalog entry appears at most
// once.
func (s *Service) MatchNames(ctx context.Context, names []string) ([]Hit, error) {
	re := compileNames(names)
	if re == nil {
		return nil, apperr.Validation("medicine name list must contain at least one non-empty name")
	}

	medicines, err := s.catalog.ListMedicines(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	hits := make([]Hit, 0)
	for _, med := range medicines {
		switch {
		case med.BrandName != "" && re.MatchString(med.BrandName):
			hits = append(hits, Hit{Medicine: med, MatchedFrom: models.MatchedFromBrand})
		case med.GenericName != "" && re.MatchString(med.GenericName):
			hits = append(hits, Hit{Medicine: med, MatchedFrom: models.MatchedFromGeneric})
		}
	}

	s.logger.Debug("matched name list", zap.Strings("names", names), zap.Int("hits", len(hits)))
	return hits, nil
}

// Hit is a catalog entry returned by MatchNames.
type Hit struct {
	Medicine    models.Medicine    `json:"medicine"`
	MatchedFrom models.MatchSource `json:"matchedFrom"`
}

// Match converts the hit into the matched-medicine record stored on prescriptions.
func (h Hit) Match() models.MatchedMedicine {
	return toMatch(h.Medicine, h.MatchedFrom)
}

func toMatch(med models.Medicine, from models.MatchSource) models.MatchedMedicine {
	return models.MatchedMedicine{
		MedicineID:  med.ID,
		GenericName: med.GenericName,
		BrandName:   med.BrandName,
		MatchedFrom: from,
	}
}
