// Package events publishes prediction notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// PredictionCompleted is emitted after a successful /predict.
type PredictionCompleted struct {
	ClassName  string    `json:"class_name"`
	Confidence float64   `json:"confidence"`
	StorageKey string    `json:"storage_key,omitempty"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	PublishPrediction(ctx context.Context, e PredictionCompleted) error
	Close()
}

type publishAPI interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	conn    publishAPI
	subject string
	close   func()
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("agrodetect"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{conn: nc, subject: subject, close: nc.Close}, nil
}

func (p *NATSPublisher) PublishPrediction(ctx context.Context, e PredictionCompleted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", p.subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}

// Nop drops every event. Used when no NATS URL is configured.
type Nop struct{}

func (Nop) PublishPrediction(context.Context, PredictionCompleted) error { return nil }
func (Nop) Close()                                                       {}
