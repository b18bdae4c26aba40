package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dmitrijs2005/agrodetect/internal/logging"
)

// Labels maps detector class ids to class names. It is built once at
// startup and only read afterwards.
type Labels map[int]string

// Name returns the label for id, or its decimal form when unknown.
func (l Labels) Name(id int) string {
	if name, ok := l[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

// ParseLabels accepts either {"0": "wheat_rust", ...} or ["wheat_rust", ...].
func ParseLabels(data []byte) (Labels, error) {
	var byKey map[string]string
	if err := json.Unmarshal(data, &byKey); err == nil {
		labels := make(Labels, len(byKey))
		for k, v := range byKey {
			id, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("label id %q: %w", k, err)
			}
			labels[id] = v
		}
		return labels, nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("labels: expected object or array: %w", err)
	}
	labels := make(Labels, len(list))
	for i, v := range list {
		labels[i] = v
	}
	return labels, nil
}

func LoadLabelsFile(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLabels(data)
}

// NamesSource is implemented by models that can report their class names.
type NamesSource interface {
	Names(ctx context.Context) (Labels, error)
}

// LoadLabels asks src for the class names and falls back to the JSON file at
// path. It fails only when neither source is usable.
func LoadLabels(ctx context.Context, src NamesSource, path string, logger logging.Logger) (Labels, error) {
	var srcErr error
	if src != nil {
		labels, err := src.Names(ctx)
		if err == nil && len(labels) > 0 {
			logger.Info(ctx, "labels loaded from model", "count", len(labels))
			return labels, nil
		}
		if err == nil {
			err = errors.New("model returned no names")
		}
		srcErr = err
		logger.Warn(ctx, "model names unavailable", "error", err)
	}

	if path == "" {
		return nil, fmt.Errorf("no labels: %w", srcErr)
	}

	labels, err := LoadLabelsFile(path)
	if err != nil {
		return nil, errors.Join(srcErr, fmt.Errorf("labels file %s: %w", path, err))
	}
	logger.Info(ctx, "labels loaded from file", "path", path, "count", len(labels))
	return labels, nil
}
