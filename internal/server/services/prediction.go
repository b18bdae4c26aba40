package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/dmitrijs2005/agrodetect/internal/logging"
	"github.com/dmitrijs2005/agrodetect/internal/server/detector"
	"github.com/dmitrijs2005/agrodetect/internal/server/events"
	"github.com/dmitrijs2005/agrodetect/internal/server/models"
	"github.com/dmitrijs2005/agrodetect/internal/server/storage"
)

// sideEffectTimeout bounds archiving and event publishing after a response
// has been assembled.
const sideEffectTimeout = 5 * time.Second

type CandidateDetector interface {
	Detect(ctx context.Context, data []byte) ([]detector.Candidate, error)
}

type MetadataFinder interface {
	FindByClass(ctx context.Context, label string) (*models.CropMetadata, error)
}

// PredictionService assembles /predict responses. Archive and Publisher are
// optional; their failures never change the result.
type PredictionService struct {
	detector CandidateDetector
	crops    MetadataFinder
	archive  storage.Archive
	events   events.Publisher
	logger   logging.Logger
	now      func() time.Time
}

func NewPredictionService(d CandidateDetector, crops MetadataFinder, archive storage.Archive, pub events.Publisher, logger logging.Logger) *PredictionService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &PredictionService{
		detector: d,
		crops:    crops,
		archive:  archive,
		events:   pub,
		logger:   logger.With("module", "prediction"),
		now:      time.Now,
	}
}

// Predict runs detection on data and joins the best candidate with its
// metadata.
//
// Errors: common.ErrEmptyUpload, common.ErrDecode, common.ErrInference,
// common.ErrNoObjectDetected, common.ErrMetadataMissing or
// common.ErrorInternal.
func (s *PredictionService) Predict(ctx context.Context, data []byte, contentType string) (*models.DetectionResult, error) {
	if len(data) == 0 {
		return nil, common.ErrEmptyUpload
	}

	candidates, err := s.detector.Detect(ctx, data)
	if err != nil {
		return nil, err
	}

	best, ok := SelectBest(candidates)
	if !ok {
		return nil, common.ErrNoObjectDetected
	}

	meta, err := s.crops.FindByClass(ctx, best.Label)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "no metadata for class", "class", best.Label)
			return nil, common.ErrMetadataMissing
		}
		return nil, err
	}

	result := models.NewDetectionResult(meta, best.Confidence)

	s.afterPrediction(ctx, data, contentType, best)

	return result, nil
}

// SelectBest returns the candidate with the highest confidence. Ties go to
// the earliest candidate. ok is false for an empty slice.
func SelectBest(candidates []detector.Candidate) (best detector.Candidate, ok bool) {
	if len(candidates) == 0 {
		return detector.Candidate{}, false
	}
	best = candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, true
}

func (s *PredictionService) afterPrediction(ctx context.Context, data []byte, contentType string, best detector.Candidate) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	var key string
	if s.archive != nil {
		k, err := s.archive.Store(ctx, data, contentType)
		if err != nil {
			s.logger.Warn(ctx, "archive upload failed", "error", err)
		} else {
			key = k
		}
	}

	err := s.events.PublishPrediction(ctx, events.PredictionCompleted{
		ClassName:  best.Label,
		Confidence: best.Confidence,
		StorageKey: key,
		At:         s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn(ctx, "publish prediction event failed", "error", err)
	}

	s.logger.Info(ctx, "prediction served", "class", best.Label, "confidence", best.Confidence, "storage_key", key)
}
