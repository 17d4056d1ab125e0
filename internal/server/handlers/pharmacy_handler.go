package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/domain/models"
	"github.com/mamadbah2/epharmacy/internal/service/matcher"
	"github.com/mamadbah2/epharmacy/internal/service/stock"
)

// NameMatcher matches explicit name lists against the catalog.
type NameMatcher interface {
	MatchNames(ctx context.Context, names []string) ([]matcher.Hit, error)
}

// StockResolver answers availability queries.
type StockResolver interface {
	ResolveNames(ctx context.Context, names []string) ([]stock.Availability, error)
	ResolveGenericAtPharmacy(ctx context.Context, genericName string, pharmacyID primitive.ObjectID) ([]stock.EntryView, error)
	ResolveGeneric(ctx context.Context, genericName string) (*stock.GenericAvailability, error)
}

// StockLedger mutates the per-pharmacy stock ledger.
type StockLedger interface {
	Register(ctx context.Context, pharmacyID primitive.ObjectID, req stock.RegisterRequest) (models.StockEntry, error)
	Restock(ctx context.Context, stockID primitive.ObjectID, inputs []stock.BatchInput) (*models.StockEntry, error)
	DeleteMedicine(ctx context.Context, medicineID primitive.ObjectID) error
	ExpiringSummary(ctx context.Context, pharmacyID primitive.ObjectID) (models.ExpiringSummary, error)
}

// ExpirySweeper runs the expiry sweep on demand.
type ExpirySweeper interface {
	Sweep(ctx context.Context) (models.SweepReport, error)
}

// PharmacyHandler exposes matching, availability and ledger operations.
type PharmacyHandler struct {
	matcher  NameMatcher
	resolver StockResolver
	ledger   StockLedger
	sweeper  ExpirySweeper
	logger   *zap.Logger
}

// NewPharmacyHandler constructs the pharmacy HTTP adapter.
func NewPharmacyHandler(m NameMatcher, r StockResolver, l StockLedger, s ExpirySweeper, logger *zap.Logger) *PharmacyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PharmacyHandler{matcher: m, resolver: r, ledger: l, sweeper: s, logger: logger}
}

type medicineNamesRequest struct {
	Medicines []string `json:"medicines"`
}

type restockRequest struct {
	ExpirationPerStock []stock.BatchInput `json:"expirationPerStock"`
}

// Match returns every catalog entry matching the submitted names.
func (h *PharmacyHandler) Match(c *gin.Context) {
	var req medicineNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	hits, err := h.matcher.MatchNames(c.Request.Context(), req.Medicines)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medicines": hits})
}

// WithMedicines resolves the pharmacies stocking any of the submitted names.
func (h *PharmacyHandler) WithMedicines(c *gin.Context) {
	var req medicineNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	pharmacies, err := h.resolver.ResolveNames(c.Request.Context(), req.Medicines)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pharmacies": pharmacies})
}

// GenericAtPharmacy lists one pharmacy's variants of a generic medicine.
func (h *PharmacyHandler) GenericAtPharmacy(c *gin.Context) {
	pharmacyID, err := objectIDParam(c, "pharmacyId")
	if err != nil {
		writeError(c, err)
		return
	}

	views, err := h.resolver.ResolveGenericAtPharmacy(c.Request.Context(), c.Param("genericName"), pharmacyID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medicines": views})
}

// GenericAvailability aggregates a generic medicine across pharmacies.
func (h *PharmacyHandler) GenericAvailability(c *gin.Context) {
	result, err := h.resolver.ResolveGeneric(c.Request.Context(), c.Param("genericName"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterStock adds a medicine and its batches to a pharmacy's ledger.
func (h *PharmacyHandler) RegisterStock(c *gin.Context) {
	pharmacyID, err := objectIDParam(c, "pharmacyId")
	if err != nil {
		writeError(c, err)
		return
	}

	var req stock.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	entry, err := h.ledger.Register(c.Request.Context(), pharmacyID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Restock replaces the batches of a ledger entry.
func (h *PharmacyHandler) Restock(c *gin.Context) {
	stockID, err := objectIDParam(c, "stockId")
	if err != nil {
		writeError(c, err)
		return
	}

	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	entry, err := h.ledger.Restock(c.Request.Context(), stockID, req.ExpirationPerStock)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteMedicine removes a catalog entry and its ledger entries.
func (h *PharmacyHandler) DeleteMedicine(c *gin.Context) {
	medicineID, err := objectIDParam(c, "medicineId")
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.ledger.DeleteMedicine(c.Request.Context(), medicineID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "medicine and related stock deleted"})
}

// Expiring buckets a pharmacy's stock by time to expiry.
func (h *PharmacyHandler) Expiring(c *gin.Context) {
	pharmacyID, err := objectIDParam(c, "pharmacyId")
	if err != nil {
		writeError(c, err)
		return
	}

	summary, err := h.ledger.ExpiringSummary(c.Request.Context(), pharmacyID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Sweep runs the expiry sweep now.
func (h *PharmacyHandler) Sweep(c *gin.Context) {
	report, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	h.logger.Info("on-demand expiry sweep completed", zap.Int("batches_zeroed", report.BatchesZeroed))
	c.JSON(http.StatusOK, report)
}
