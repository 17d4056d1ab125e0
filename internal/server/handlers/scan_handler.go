package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/service/scan"
)

const (
	scanFormField     = "prescription"
	scanTimeoutHeader = "X-Scan-Timeout"
)

// Scanner runs the photo-to-text pipeline.
type Scanner interface {
	Scan(ctx context.Context, req scan.Request) (*scan.Result, error)
}

// ScanHandler accepts prescription photos.
type ScanHandler struct {
	scanner    Scanner
	maxBytes   int64
	maxTimeout time.Duration
	logger     *zap.Logger
}

// NewScanHandler constructs the scan HTTP adapter. maxBytes caps the upload
// size and maxTimeout caps the X-Scan-Timeout header; it must stay below the
// server write timeout. A non-positive maxTimeout leaves the header uncapped.
func NewScanHandler(scanner Scanner, maxBytes int64, maxTimeout time.Duration, logger *zap.Logger) *ScanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &ScanHandler{scanner: scanner, maxBytes: maxBytes, maxTimeout: maxTimeout, logger: logger}
}

// Submit handles a multipart upload with the photo in the "prescription" field.
func (h *ScanHandler) Submit(c *gin.Context) {
	file, err := c.FormFile(scanFormField)
	if err != nil {
		writeError(c, apperr.InvalidImage("prescription image is required", err))
		return
	}
	if file.Size > h.maxBytes {
		writeError(c, apperr.InvalidImage("prescription image is too large", nil))
		return
	}

	f, err := file.Open()
	if err != nil {
		writeError(c, apperr.InvalidImage("cannot read uploaded image", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes))
	if err != nil {
		writeError(c, apperr.InvalidImage("cannot read uploaded image", err))
		return
	}

	timeout, err := parseTimeout(c.GetHeader(scanTimeoutHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	if h.maxTimeout > 0 && timeout > h.maxTimeout {
		h.logger.Debug("scan timeout capped", zap.Duration("requested", timeout), zap.Duration("max", h.maxTimeout))
		timeout = h.maxTimeout
	}

	result, err := h.scanner.Scan(c.Request.Context(), scan.Request{Image: data, Timeout: timeout})
	if err != nil {
		h.logger.Warn("scan failed", zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
		if result != nil {
			writePartial(c, result, err)
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseTimeout accepts a Go duration ("5s") or a number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs <= 0 {
			return 0, apperr.Validation("scan timeout must be positive")
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, apperr.Validation("invalid " + scanTimeoutHeader + " header: " + raw)
	}
	return d, nil
}
