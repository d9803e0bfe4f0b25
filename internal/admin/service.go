// Package admin backs the internal dashboard: listing inquiries and reviews and
// moving them through their status lifecycles.
package admin

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xovato/agency-backend/internal/store"
	"github.com/xovato/agency-backend/pkg/model"
)

// Store is the persistence the dashboard reads and updates.
type Store interface {
	ListInquiries(ctx context.Context, limit int) ([]model.Inquiry, error)
	SetInquiryStatus(ctx context.Context, id string, status model.InquiryStatus) error
	ListReviews(ctx context.Context, limit int) ([]model.Review, error)
	SetReviewStatus(ctx context.Context, id string, status model.ReviewStatus) error
}

// EventPublisher emits domain events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, sessionID string, payload any) error
}

// Dashboard is the admin overview.
type Dashboard struct {
	Inquiries []model.Inquiry `json:"inquiries"`
	Reviews   []model.Review  `json:"reviews"`
	Counts    Counts          `json:"counts"`
}

type Counts struct {
	Inquiries map[model.InquiryStatus]int `json:"inquiries"`
	Reviews   map[model.ReviewStatus]int  `json:"reviews"`
}

type Service struct {
	logger *zap.Logger
	store  Store
	events EventPublisher
	limit  int
	now    func() time.Time
}

func NewService(logger *zap.Logger, st Store, events EventPublisher, limit int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 200
	}
	return &Service{logger: logger, store: st, events: events, limit: limit, now: time.Now}
}

// Dashboard loads inquiries and reviews concurrently.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.store.ListInquiries(gctx, s.limit)
		if err != nil {
			return fmt.Errorf("list inquiries: %w", err)
		}
		d.Inquiries = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.ListReviews(gctx, s.limit)
		if err != nil {
			return fmt.Errorf("list reviews: %w", err)
		}
		d.Reviews = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("admin.dashboard_failed", zap.Error(err))
		return Dashboard{}, err
	}

	if d.Inquiries == nil {
		d.Inquiries = []model.Inquiry{}
	}
	if d.Reviews == nil {
		d.Reviews = []model.Review{}
	}
	d.Counts = Counts{
		Inquiries: make(map[model.InquiryStatus]int),
		Reviews:   make(map[model.ReviewStatus]int),
	}
	for _, inq := range d.Inquiries {
		d.Counts.Inquiries[inq.Status]++
	}
	for _, r := range d.Reviews {
		d.Counts.Reviews[r.Status]++
	}
	return d, nil
}

// SetInquiryStatus validates status and applies it. by is the acting admin.
func (s *Service) SetInquiryStatus(ctx context.Context, id, status, by string) error {
	st, err := model.ParseInquiryStatus(status)
	if err != nil {
		return err
	}
	if err := s.store.SetInquiryStatus(ctx, id, st); err != nil {
		return err
	}
	s.announce(ctx, model.EventInquiryStatusChanged, id, string(st), by)
	return nil
}

// SetReviewStatus validates status and applies it. by is the acting admin.
func (s *Service) SetReviewStatus(ctx context.Context, id, status, by string) error {
	st, err := model.ParseReviewStatus(status)
	if err != nil {
		return err
	}
	if err := s.store.SetReviewStatus(ctx, id, st); err != nil {
		return err
	}
	s.announce(ctx, model.EventReviewStatusChanged, id, string(st), by)
	return nil
}

func (s *Service) announce(ctx context.Context, eventType, id, status, by string) {
	s.logger.Info("admin.status_changed",
		zap.String("event", eventType),
		zap.String("id", id),
		zap.String("status", status))
	if s.events == nil {
		return
	}
	change := model.StatusChange{ID: id, Status: status, ChangedBy: by, Timestamp: s.now().UTC()}
	if err := s.events.PublishEvent(ctx, eventType, "", change); err != nil {
		s.logger.Warn("admin.event_publish_failed", zap.String("id", id), zap.Error(err))
	}
}

var _ Store = (store.Store)(nil)
