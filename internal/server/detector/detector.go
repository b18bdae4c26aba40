// Package detector turns uploaded image bytes into a list of labelled
// candidates: decode, convert to RGB, call the external model, normalise its
// output shape and resolve class ids to labels.
package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/dmitrijs2005/agrodetect/internal/logging"
	"golang.org/x/sync/semaphore"
)

// Candidate is one detection with its resolved label.
type Candidate struct {
	Label      string
	Confidence float64
}

// Detector is safe for concurrent use. At most maxConcurrent model calls
// run at once; each is bounded by timeout.
type Detector struct {
	model   Model
	labels  Labels
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  logging.Logger
}

func New(model Model, labels Labels, maxConcurrent int64, timeout time.Duration, logger logging.Logger) *Detector {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Detector{
		model:   model,
		labels:  labels,
		sem:     semaphore.NewWeighted(maxConcurrent),
		timeout: timeout,
		logger:  logger.With("module", "detector"),
	}
}

// Detect returns candidates in model emission order; an empty slice means
// nothing was found.
//
// Errors: common.ErrDecode for empty or unreadable images, common.ErrInference
// for model failures. Output the model produced in an unknown layout matches
// both common.ErrInference and common.ErrUnrecognizedModelOutput.
func (d *Detector) Detect(ctx context.Context, data []byte) ([]Candidate, error) {
	img, format, err := Decode(data)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := d.infer(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInference, err)
	}

	out, err := ParseOutput(raw)
	if err != nil {
		d.logger.Warn(ctx, "unrecognized model output", "bytes", len(raw))
		return nil, fmt.Errorf("%w: %w", common.ErrInference, err)
	}

	if out.Clamped > 0 {
		d.logger.Warn(ctx, "detector confidences outside [0,1] were clamped", "count", out.Clamped, "shape", out.Shape.String())
	}

	candidates := make([]Candidate, len(out.Detections))
	for i, det := range out.Detections {
		candidates[i] = Candidate{Label: d.labels.Name(det.ClassID), Confidence: det.Confidence}
	}

	d.logger.Debug(ctx, "inference done",
		"format", format, "width", img.Width, "height", img.Height,
		"shape", out.Shape.String(), "candidates", len(candidates), "elapsed", time.Since(start))

	return candidates, nil
}

func (d *Detector) infer(ctx context.Context, img *RGBImage) (RawOutput, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer d.sem.Release(1)

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	return d.model.Infer(ctx, img)
}
