// Package reviews collects and serves the visitor reviews shown on the globe.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/metrics"
	"github.com/xovato/agency-backend/internal/notify"
	"github.com/xovato/agency-backend/internal/store"
	"github.com/xovato/agency-backend/pkg/model"
	"github.com/xovato/agency-backend/pkg/utils"
)

const (
	DefaultCategory = "Web App"
	listLimit       = 50
)

var (
	ErrMissingFields = errors.New("please fill in all fields")
	ErrInvalidEmail  = errors.New("invalid email")
)

var emailPattern = regexp.MustCompile(`(?i)^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

// ReviewInput is a review as typed by the visitor.
type ReviewInput struct {
	CountryCode string
	Category    string
	Rating      int
	Title       string
	Comment     string
	DisplayName string
	Email       string
}

// Store is the persistence the service needs.
type Store interface {
	CreateReview(ctx context.Context, r model.Review) (model.Review, error)
	ListApprovedReviews(ctx context.Context, f store.ReviewFilter) ([]model.Review, error)
}

// EventPublisher emits domain events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, sessionID string, payload any) error
}

type Options struct {
	DefaultCountry string
	NotifyEmail    string // recipient of the new-review notice; empty disables it
	NotifyTimeout  time.Duration
}

type Service struct {
	logger   *zap.Logger
	store    Store
	events   EventPublisher
	notifier notify.Dispatcher
	opts     Options
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewService(logger *zap.Logger, st Store, events EventPublisher, notifier notify.Dispatcher, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultCountry == "" {
		opts.DefaultCountry = "PK"
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	return &Service{
		logger:   logger,
		store:    st,
		events:   events,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
	}
}

// Normalize trims and validates in, returning the review to insert. A missing
// rating defaults to 5; anything else is clamped to 1..5.
func (s *Service) Normalize(in ReviewInput) (model.Review, error) {
	if in.Rating == 0 {
		in.Rating = 5
	}
	r := model.Review{
		CountryCode:   strings.ToUpper(strings.TrimSpace(in.CountryCode)),
		Category:      strings.TrimSpace(in.Category),
		Rating:        min(5, max(1, in.Rating)),
		Title:         strings.TrimSpace(in.Title),
		Comment:       strings.TrimSpace(in.Comment),
		DisplayName:   strings.TrimSpace(in.DisplayName),
		ReviewerEmail: strings.ToLower(strings.TrimSpace(in.Email)),
		Status:        model.ReviewPending,
	}
	if r.DisplayName == "" || r.Title == "" || r.Comment == "" || r.ReviewerEmail == "" {
		return r, ErrMissingFields
	}
	if !emailPattern.MatchString(r.ReviewerEmail) {
		return r, ErrInvalidEmail
	}
	if len(r.CountryCode) != 2 {
		r.CountryCode = s.opts.DefaultCountry
	}
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	return r, nil
}

// Submit stores a pending review, then announces it on the bus and by email.
func (s *Service) Submit(ctx context.Context, in ReviewInput) (model.Review, error) {
	r, err := s.Normalize(in)
	if err != nil {
		return r, err
	}
	r.CreatedAt = s.now().UTC()

	saved, err := s.store.CreateReview(ctx, r)
	if err != nil {
		metrics.IncError("reviews", "db_write")
		s.logger.Error("reviews.create_failed",
			zap.String("email", utils.MaskEmail(r.ReviewerEmail)),
			zap.Error(err))
		return r, fmt.Errorf("create review: %w", err)
	}
	s.logger.Info("reviews.created",
		zap.String("review_id", saved.ID),
		zap.String("country", saved.CountryCode),
		zap.Int("rating", saved.Rating))

	if s.events != nil {
		if err := s.events.PublishEvent(ctx, model.EventReviewSubmitted, "", saved); err != nil {
			s.logger.Warn("reviews.event_publish_failed", zap.String("review_id", saved.ID), zap.Error(err))
		}
	}
	s.sendNotice(saved)
	return saved, nil
}

func (s *Service) sendNotice(r model.Review) {
	if s.notifier == nil || s.opts.NotifyEmail == "" {
		return
	}
	job := notify.NewJob(notify.KindEmail, map[string]any{
		"to_email":       s.opts.NotifyEmail,
		"display_name":   r.DisplayName,
		"reviewer_email": r.ReviewerEmail,
		"title":          r.Title,
		"comment":        r.Comment,
		"rating":         strconv.Itoa(r.Rating),
		"country_code":   r.CountryCode,
		"category":       r.Category,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.NotifyTimeout)
		defer cancel()
		if err := s.notifier.Dispatch(ctx, job); err != nil {
			s.logger.Warn("reviews.notice_failed", zap.String("review_id", r.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until pending notices have been handed off.
func (s *Service) Wait() {
	s.wg.Wait()
}

// ListApproved returns up to 50 approved reviews, newest first. When there are none,
// or the store fails, demo reviews for the country are returned instead.
func (s *Service) ListApproved(ctx context.Context, country, category string) []model.Review {
	country = strings.ToUpper(strings.TrimSpace(country))
	rows, err := s.store.ListApprovedReviews(ctx, store.ReviewFilter{
		Country:  country,
		Category: category,
		Limit:    listLimit,
	})
	if err != nil {
		s.logger.Warn("reviews.list_failed", zap.String("country", country), zap.Error(err))
	}
	if err != nil || len(rows) == 0 {
		return DemoReviews(country, category, s.now())
	}
	return rows
}

type demoTemplate struct {
	title   string
	comment string
	rating  int
}

var demoTemplates = []demoTemplate{
	{"Premium UI & smooth flow", "Animations feel clean and modern. The layout is fast, responsive, and the overall experience feels premium.", 5},
	{"Super professional delivery", "Communication was clear, changes were handled quickly, and the final result looked exactly as expected.", 5},
	{"Solid work & great support", "A couple of tweaks were needed, but everything was fixed fast and the project was delivered on time.", 4},
	{"Highly recommended", "Design is modern, performance is strong, and the attention to detail is excellent. Would work again.", 5},
}

var demoNames = []string{"Ayesha K.", "Daniel R.", "Sofia M.", "Omar F."}

// DemoReviews builds the placeholder reviews shown for a country without any.
func DemoReviews(country, category string, now time.Time) []model.Review {
	if category == "" {
		category = DefaultCategory
	}
	out := make([]model.Review, len(demoTemplates))
	for i, t := range demoTemplates {
		out[i] = model.Review{
			ID:            fmt.Sprintf("demo-%s-%d", country, i),
			CountryCode:   country,
			Category:      category,
			Rating:        t.rating,
			Title:         t.title,
			Comment:       t.comment,
			DisplayName:   demoNames[i%len(demoNames)],
			EmailVerified: true,
			Status:        model.ReviewApproved,
			CreatedAt:     now.Add(-time.Duration(i+1) * 24 * time.Hour).UTC(),
		}
	}
	return out
}
