// Package notify delivers the service's secondary notifications: the scheduling
// webhook fired after an inquiry and the EmailJS notice sent for new reviews.
// Delivery is either direct or through a RabbitMQ work queue.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/xovato/agency-backend/internal/secrets"
)

// Kind names a notification job.
type Kind string

const (
	KindScheduleCall Kind = "schedule_call"
	KindEmail        Kind = "email"
)

var (
	ErrNotConfigured = errors.New("notification endpoint not configured")
	ErrUnknownKind   = errors.New("unknown notification kind")
)

// Job is one notification. Params is the calendar payload or the email template params.
type Job struct {
	Kind      Kind           `json:"kind"`
	Params    map[string]any `json:"params"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewJob stamps a job with the current time.
func NewJob(kind Kind, params map[string]any) Job {
	return Job{Kind: kind, Params: params, CreatedAt: time.Now().UTC()}
}

// Dispatcher hands a job to its transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// IntegrationSource yields the current endpoints and credentials.
type IntegrationSource interface {
	Resolve(ctx context.Context) secrets.Integrations
}
