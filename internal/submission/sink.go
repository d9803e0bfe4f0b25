// Package submission persists finished inquiries and fans out the follow-ups.
// Only the database write decides the outcome; events and the scheduling call
// are best effort.
package submission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/metrics"
	"github.com/xovato/agency-backend/internal/notify"
	"github.com/xovato/agency-backend/pkg/model"
	"github.com/xovato/agency-backend/pkg/utils"
)

// InquiryWriter is the persistence the sink needs.
type InquiryWriter interface {
	CreateInquiry(ctx context.Context, inq model.Inquiry) (model.Inquiry, error)
}

// EventPublisher emits domain events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, sessionID string, payload any) error
}

type Sink struct {
	logger        *zap.Logger
	store         InquiryWriter
	events        EventPublisher
	notifier      notify.Dispatcher
	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

// NewSink builds a sink. events and notifier may be nil.
func NewSink(logger *zap.Logger, store InquiryWriter, events EventPublisher, notifier notify.Dispatcher, notifyTimeout time.Duration) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	return &Sink{
		logger:        logger,
		store:         store,
		events:        events,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
	}
}

// Submit writes inq and returns the stored row.
func (s *Sink) Submit(ctx context.Context, sessionID string, inq model.Inquiry) (model.Inquiry, error) {
	start := time.Now()
	saved, err := s.store.CreateInquiry(ctx, inq)
	if err != nil {
		metrics.IncSubmission("error")
		metrics.IncError("submission", "db_write")
		s.logger.Error("submission.create_failed",
			zap.String("email", utils.MaskEmail(inq.ClientEmail)),
			zap.String("service", inq.Service),
			zap.Error(err))
		return inq, fmt.Errorf("create inquiry: %w", err)
	}
	metrics.IncSubmission("ok")
	s.logger.Info("submission.created",
		zap.String("inquiry_id", saved.ID),
		zap.String("service", saved.Service),
		zap.Float64("estimate_usd", saved.EstimatedCostUSD),
		zap.Duration("elapsed", time.Since(start)))

	if s.events != nil {
		if err := s.events.PublishEvent(ctx, model.EventInquiryCreated, sessionID, saved); err != nil {
			metrics.IncError("submission", "event_publish")
			s.logger.Warn("submission.event_publish_failed",
				zap.String("inquiry_id", saved.ID),
				zap.Error(err))
		}
	}

	s.scheduleCall(saved)
	return saved, nil
}

// scheduleCall fires the scheduling notification on a detached goroutine.
func (s *Sink) scheduleCall(inq model.Inquiry) {
	if s.notifier == nil {
		return
	}
	job := notify.NewJob(notify.KindScheduleCall, CalendarPayload(inq))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.Dispatch(ctx, job); err != nil {
			s.logger.Warn("submission.calendar_notify_failed",
				zap.String("inquiry_id", inq.ID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every in-flight notification has returned.
func (s *Sink) Wait() {
	s.wg.Wait()
}

// CalendarPayload is the inquiry row plus the scheduling action.
func CalendarPayload(inq model.Inquiry) map[string]any {
	p := map[string]any{
		"id":                    inq.ID,
		"source_id":             inq.Service,
		"project_types":         inq.ProjectTypes,
		"ai_estimated_cost_usd": inq.EstimatedCostUSD,
		"client_currency":       inq.ClientCurrency,
		"client_name":           inq.ClientName,
		"client_email":          inq.ClientEmail,
		"details":               inq.Details,
		"status":                string(inq.Status),
		"created_at":            inq.CreatedAt.UTC().Format(time.RFC3339),
		"action":                string(notify.KindScheduleCall),
	}
	if inq.Budget != "" {
		p["budget"] = inq.Budget
	}
	return p
}
