package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/metrics"
	"github.com/mamadbah2/epharmacy/internal/server/handlers"
)

const serviceName = "epharmacy"

// Handlers groups the HTTP adapters mounted on the engine.
type Handlers struct {
	Scan         *handlers.ScanHandler
	Prescription *handlers.PrescriptionHandler
	Pharmacy     *handlers.PharmacyHandler
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New wires the Gin engine with required routes and middlewares. pinger may be nil.
func New(h Handlers, pinger Pinger, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(metrics.NewHTTPMetrics(serviceName).Middleware())

	r.GET("/healthz", healthz(pinger))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	{
		api.POST("/scans", h.Scan.Submit)

		api.POST("/customers/:customerId/prescriptions", h.Prescription.Create)
		api.GET("/customers/:customerId/prescriptions", h.Prescription.List)
		api.GET("/prescriptions/count", h.Prescription.Count)
		api.GET("/reports/most-scanned", h.Prescription.MostScanned)

		api.POST("/medicines/match", h.Pharmacy.Match)
		api.GET("/medicines/available/:genericName", h.Pharmacy.GenericAvailability)
		api.DELETE("/medicines/:medicineId", h.Pharmacy.DeleteMedicine)

		api.POST("/pharmacies/with-medicines", h.Pharmacy.WithMedicines)
		api.GET("/pharmacies/:pharmacyId/medicines/:genericName", h.Pharmacy.GenericAtPharmacy)
		api.POST("/pharmacies/:pharmacyId/stock", h.Pharmacy.RegisterStock)
		api.GET("/pharmacies/:pharmacyId/expiring", h.Pharmacy.Expiring)

		api.PUT("/stock/:stockId", h.Pharmacy.Restock)
		api.POST("/expiry/sweep", h.Pharmacy.Sweep)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func healthz(pinger Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Info("request completed", fields...)
	}
}
