package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/dmitrijs2005/agrodetect/internal/common"
)

// Shape identifies which of the accepted detector output layouts matched.
type Shape int

const (
	// ShapeBoxes: {"boxes": {"cls": [...], "conf": [...]}}
	ShapeBoxes Shape = iota + 1
	// ShapeBoxesData: {"boxes": {"data": [[..., conf, cls], ...]}}
	ShapeBoxesData
	// ShapeXYXY: {"xyxy": [[[..., conf, cls], ...], ...]}, first image only
	ShapeXYXY
)

func (s Shape) String() string {
	switch s {
	case ShapeBoxes:
		return "boxes"
	case ShapeBoxesData:
		return "boxes.data"
	case ShapeXYXY:
		return "xyxy"
	default:
		return "unknown"
	}
}

// Detection is one raw (class id, confidence) pair before label resolution.
type Detection struct {
	ClassID    int
	Confidence float64
}

// Output is the normalised detector response. Detections keep emission order.
// Clamped counts confidences that fell outside [0,1] and were clamped.
type Output struct {
	Shape      Shape
	Detections []Detection
	Clamped    int
}

var errShape = errors.New("shape mismatch")

// ParseOutput recognises the detector's JSON response. Layouts are tried in
// a fixed order (boxes, boxes.data, xyxy); a layout that is present but
// malformed falls through to the next one. An explicit empty list is a valid
// result with no detections.
func ParseOutput(raw []byte) (*Output, error) {
	var top any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnrecognizedModelOutput, err)
	}

	if list, ok := top.([]any); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty result list", common.ErrUnrecognizedModelOutput)
		}
		top = list[0]
	}

	obj, ok := top.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object", common.ErrUnrecognizedModelOutput)
	}

	parsers := []struct {
		shape Shape
		parse func(map[string]any) ([]Detection, error)
	}{
		{ShapeBoxes, parseBoxes},
		{ShapeBoxesData, parseBoxesData},
		{ShapeXYXY, parseXYXY},
	}

	for _, p := range parsers {
		dets, err := p.parse(obj)
		if err == nil {
			out := &Output{Shape: p.shape, Detections: dets}
			for i := range out.Detections {
				c := out.Detections[i].Confidence
				if c < 0 || c > 1 {
					out.Detections[i].Confidence = clamp01(c)
					out.Clamped++
				}
			}
			return out, nil
		}
	}

	return nil, common.ErrUnrecognizedModelOutput
}

func parseBoxes(obj map[string]any) ([]Detection, error) {
	boxes, ok := obj["boxes"].(map[string]any)
	if !ok {
		return nil, errShape
	}
	cls, ok1 := boxes["cls"].([]any)
	conf, ok2 := boxes["conf"].([]any)
	if !ok1 || !ok2 || len(cls) != len(conf) {
		return nil, errShape
	}

	dets := make([]Detection, 0, len(cls))
	for i := range cls {
		d, err := detection(cls[i], conf[i])
		if err != nil {
			return nil, err
		}
		dets = append(dets, d)
	}
	return dets, nil
}

func parseBoxesData(obj map[string]any) ([]Detection, error) {
	boxes, ok := obj["boxes"].(map[string]any)
	if !ok {
		return nil, errShape
	}
	rows, ok := boxes["data"].([]any)
	if !ok {
		return nil, errShape
	}
	return parseRows(rows)
}

func parseXYXY(obj map[string]any) ([]Detection, error) {
	images, ok := obj["xyxy"].([]any)
	if !ok || len(images) == 0 {
		return nil, errShape
	}
	rows, ok := images[0].([]any)
	if !ok {
		return nil, errShape
	}
	return parseRows(rows)
}

// parseRows reads tables whose rows end with (confidence, class id).
func parseRows(rows []any) ([]Detection, error) {
	dets := make([]Detection, 0, len(rows))
	for _, r := range rows {
		row, ok := r.([]any)
		if !ok || len(row) < 2 {
			return nil, errShape
		}
		d, err := detection(row[len(row)-1], row[len(row)-2])
		if err != nil {
			return nil, err
		}
		dets = append(dets, d)
	}
	return dets, nil
}

func detection(rawCls, rawConf any) (Detection, error) {
	cls, ok1 := rawCls.(float64)
	conf, ok2 := rawConf.(float64)
	if !ok1 || !ok2 {
		return Detection{}, errShape
	}
	if math.IsNaN(conf) || math.IsInf(conf, 0) || cls < 0 || cls != math.Trunc(cls) || cls > math.MaxInt32 {
		return Detection{}, errShape
	}
	return Detection{ClassID: int(cls), Confidence: conf}, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
