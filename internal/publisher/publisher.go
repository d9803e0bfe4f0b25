package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/xovato/agency-backend/internal/metrics"
	"github.com/xovato/agency-backend/pkg/logger"
	"github.com/xovato/agency-backend/pkg/model"
)

const envelopeVersion = "1.0.0"

// jetStream is the part of nats.JetStreamContext the publisher uses.
type jetStream interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// Publisher wraps a NATS connection and provides helpers for publishing domain events.
type Publisher struct {
	nc      *nats.Conn
	js      jetStream
	prefix  string
	service string
}

// New creates a new Publisher with JetStream enabled.
// prefix is the subject root, e.g. "evt" yields "evt.inquiry.created.v1".
func New(nc *nats.Conn, prefix, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		prefix:  prefix,
		service: service,
	}, nil
}

// Subject returns the versioned subject for an event type.
func (p *Publisher) Subject(eventType string) string {
	return fmt.Sprintf("%s.%s.v1", p.prefix, eventType)
}

// EnsureStream creates the stream capturing every subject under the prefix if it does not exist.
func (p *Publisher) EnsureStream(name string) error {
	_, err := p.js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", name, err)
	}
	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{p.prefix + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("add stream %s: %w", name, err)
	}
	logger.S().Infow("publisher.stream_created", "stream", name, "subjects", p.prefix+".>")
	return nil
}

// PublishEnvelope serializes and publishes an event envelope to NATS.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"session_id":     []string{env.SessionID},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	logger.S().Infow("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
	)

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// PublishEvent wraps payload in a fresh envelope and publishes it under the event's subject.
func (p *Publisher) PublishEvent(ctx context.Context, eventType, sessionID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	subject := p.Subject(eventType)
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		SessionID:     sessionID,
		Topic:         subject,
		EventType:     eventType,
		Version:       envelopeVersion,
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}
	return p.PublishEnvelope(ctx, subject, env)
}

func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
