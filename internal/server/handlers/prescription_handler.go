package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
	"github.com/mamadbah2/epharmacy/internal/service/prescriptions"
)

// PrescriptionService stores and lists customer prescriptions.
type PrescriptionService interface {
	Submit(ctx context.Context, customerID primitive.ObjectID, req prescriptions.SubmitRequest) (models.Prescription, error)
	ListForCustomer(ctx context.Context, customerID primitive.ObjectID) ([]models.Prescription, error)
	Count(ctx context.Context) (int64, error)
}

// Reporter computes the most-scanned ranking.
type Reporter interface {
	MostScanned(ctx context.Context, limit int) ([]models.MedicineCount, error)
}

// PrescriptionHandler exposes prescription history and reports.
type PrescriptionHandler struct {
	svc      PrescriptionService
	reporter Reporter
	logger   *zap.Logger
}

// NewPrescriptionHandler constructs the prescription HTTP adapter.
func NewPrescriptionHandler(svc PrescriptionService, reporter Reporter, logger *zap.Logger) *PrescriptionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrescriptionHandler{svc: svc, reporter: reporter, logger: logger}
}

// Create persists the matched medicines of a scan for a customer.
func (h *PrescriptionHandler) Create(c *gin.Context) {
	customerID, err := objectIDParam(c, "customerId")
	if err != nil {
		writeError(c, err)
		return
	}

	var req prescriptions.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err))
		return
	}

	p, err := h.svc.Submit(c.Request.Context(), customerID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// List returns a customer's prescriptions, newest first.
func (h *PrescriptionHandler) List(c *gin.Context) {
	customerID, err := objectIDParam(c, "customerId")
	if err != nil {
		writeError(c, err)
		return
	}

	list, err := h.svc.ListForCustomer(c.Request.Context(), customerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prescriptions": list})
}

// Count returns the number of stored prescriptions.
func (h *PrescriptionHandler) Count(c *gin.Context) {
	n, err := h.svc.Count(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MostScanned returns the top-N matched medicine names.
func (h *PrescriptionHandler) MostScanned(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, apperr.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	ranking, err := h.reporter.MostScanned(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mostScannedMedicines": ranking})
}
