package prescriptions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
	"github.com/mamadbah2/epharmacy/internal/service/scan"
)

// Store persists prescriptions.
type Store interface {
	InsertPrescription(ctx context.Context, p models.Prescription) (models.Prescription, error)
	FindPrescriptionsByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Prescription, error)
	CountPrescriptions(ctx context.Context) (int64, error)
}

// SubmitRequest carries the artifacts of a finished scan-and-match.
type SubmitRequest struct {
	OriginalImageURL  string                   `json:"originalImageUrl"`
	ProcessedImageURL string                   `json:"processedImageUrl" binding:"required"`
	OCRText           string                   `json:"ocrText"`
	MatchedMedicines  []models.MatchedMedicine `json:"matchedMedicines"`
}

// Service records and lists customer prescriptions.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a prescription service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Submit persists a prescription for customerID. Matches without a name or
// with an unknown provenance are dropped and the rest are de-duplicated.
func (s *Service) Submit(ctx context.Context, customerID primitive.ObjectID, req SubmitRequest) (models.Prescription, error) {
	if customerID.IsZero() {
		return models.Prescription{}, apperr.Validation("customer id is required")
	}
	if strings.TrimSpace(req.ProcessedImageURL) == "" {
		return models.Prescription{}, apperr.Validation("processed image url is required")
	}

	matches := make([]models.MatchedMedicine, 0, len(req.MatchedMedicines))
	for _, m := range req.MatchedMedicines {
		m.GenericName = strings.TrimSpace(m.GenericName)
		m.BrandName = strings.TrimSpace(m.BrandName)
		if !m.MatchedFrom.Valid() || m.ReportName() == "" {
			s.logger.Debug("dropping malformed match", zap.String("generic_name", m.GenericName), zap.String("matched_from", string(m.MatchedFrom)))
			continue
		}
		matches = append(matches, m)
	}

	ocrText := strings.TrimSpace(req.OCRText)
	if ocrText == "" {
		ocrText = scan.NoTextDetected
	}

	saved, err := s.store.InsertPrescription(ctx, models.Prescription{
		OriginalImageURL:  req.OriginalImageURL,
		ProcessedImageURL: req.ProcessedImageURL,
		OCRText:           ocrText,
		MatchedMedicines:  models.DedupeMatches(matches),
		CustomerID:        customerID,
		CreatedAt:         s.now().UTC(),
	})
	if err != nil {
		return models.Prescription{}, fmt.Errorf("insert prescription: %w", err)
	}

	s.logger.Info("prescription saved", zap.String("prescription_id", saved.ID.Hex()), zap.String("customer_id", customerID.Hex()), zap.Int("matches", len(saved.MatchedMedicines)))
	return saved, nil
}

// ListForCustomer returns the customer's prescriptions, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Prescription, error) {
	if customerID.IsZero() {
		return nil, apperr.Validation("customer id is required")
	}
	list, err := s.store.FindPrescriptionsByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load prescriptions: %w", err)
	}
	if len(list) == 0 {
		return nil, apperr.NotFound("no prescriptions found for this customer")
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Count returns the number of stored prescriptions.
func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.store.CountPrescriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("count prescriptions: %w", err)
	}
	return n, nil
}
