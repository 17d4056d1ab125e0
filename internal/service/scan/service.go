package scan

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
	"github.com/mamadbah2/epharmacy/internal/metrics"
)

// Uploader stores an image and returns a stable URL.
type Uploader interface {
	Upload(ctx context.Context, folder string, data []byte) (string, error)
}

// TextMatcher finds catalog entries mentioned in OCR text.
type TextMatcher interface {
	MatchText(ctx context.Context, text string) ([]models.MatchedMedicine, error)
}

// Options configures a scan Service.
type Options struct {
	OriginalFolder  string
	ProcessedFolder string
	DefaultTimeout  time.Duration
}

// Request is one submitted photo.
type Request struct {
	Image   []byte
	Timeout time.Duration
}

// Result carries every artifact the pipeline produced. On failure it holds
// whatever was produced before the failing stage.
type Result struct {
	OriginalImageURL  string                   `json:"originalImageUrl,omitempty"`
	ProcessedImageURL string                   `json:"processedImageUrl,omitempty"`
	OCRText           string                   `json:"ocrText"`
	MatchedMedicines  []models.MatchedMedicine `json:"matchedMedicines"`
}

// Service runs photo → normalized image → text → matches.
type Service struct {
	normalizer *Normalizer
	extractor  *Extractor
	uploader   Uploader
	matcher    TextMatcher
	pool       *Pool
	opts       Options
	logger     *zap.Logger
}

// NewService wires the scan pipeline. matcher may be nil to skip matching.
func NewService(normalizer *Normalizer, extractor *Extractor, uploader Uploader, matcher TextMatcher, pool *Pool, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pool == nil {
		pool = NewPool(0)
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 30 * time.Second
	}
	return &Service{
		normalizer: normalizer,
		extractor:  extractor,
		uploader:   uploader,
		matcher:    matcher,
		pool:       pool,
		opts:       opts,
		logger:     logger,
	}
}

// Scan processes one photo. A non-nil Result is returned together with the
// error whenever at least one artifact has already been produced.
func (s *Service) Scan(ctx context.Context, req Request) (*Result, error) {
	if len(req.Image) == 0 {
		return nil, apperr.InvalidImage("prescription image is required", nil)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.opts.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &Result{OCRText: NoTextDetected, MatchedMedicines: []models.MatchedMedicine{}}

	start := time.Now()
	originalURL, err := s.uploader.Upload(ctx, s.opts.OriginalFolder, req.Image)
	metrics.ObserveStage("upload_original", start, err)
	if err != nil {
		return nil, uploadError(ctx, "failed to upload original image", err)
	}
	result.OriginalImageURL = originalURL

	var processed []byte
	start = time.Now()
	err = s.pool.Run(ctx, "normalize", func() error {
		out, err := s.normalizer.Normalize(req.Image)
		if err != nil {
			return err
		}
		processed = out
		return nil
	})
	metrics.ObserveStage("normalize", start, err)
	if err != nil {
		s.logger.Warn("image normalization failed", zap.String("original_url", originalURL), zap.Error(err))
		return result, err
	}

	start = time.Now()
	processedURL, err := s.uploader.Upload(ctx, s.opts.ProcessedFolder, processed)
	metrics.ObserveStage("upload_processed", start, err)
	if err != nil {
		return result, uploadError(ctx, "failed to upload processed image", err)
	}
	result.ProcessedImageURL = processedURL

	var text string
	start = time.Now()
	err = s.pool.Run(ctx, "ocr", func() error {
		out, err := s.extractor.Extract(ctx, processed)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	metrics.ObserveStage("ocr", start, err)
	if err != nil {
		s.logger.Warn("text extraction failed",
			zap.String("processed_url", processedURL),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err))
		return result, err
	}
	result.OCRText = text

	if s.matcher != nil && text != NoTextDetected {
		matches, err := s.matcher.MatchText(ctx, text)
		if err != nil {
			// Matching can be retried later from the stored OCR text.
			s.logger.Warn("matching scanned text failed", zap.Error(err))
		} else {
			result.MatchedMedicines = matches
		}
	}

	s.logger.Info("prescription scanned",
		zap.String("processed_url", processedURL),
		zap.Int("text_length", len(text)),
		zap.Int("matches", len(result.MatchedMedicines)))

	return result, nil
}

func uploadError(ctx context.Context, message string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Timeout(message, err)
	}
	return apperr.Upstream(message, err)
}
