package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xovato/agency-backend/pkg/model"
)

var (
	// ErrNotFound is returned when a row or cache key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when Postgres is not configured.
	ErrUnavailable = errors.New("postgres unavailable")
)

// InquiryStore persists submitted inquiries (table project_inquiries).
type InquiryStore interface {
	CreateInquiry(ctx context.Context, inq model.Inquiry) (model.Inquiry, error)
	ListInquiries(ctx context.Context, limit int) ([]model.Inquiry, error)
	SetInquiryStatus(ctx context.Context, id string, status model.InquiryStatus) error
}

// ReviewStore persists globe reviews (table reviews).
type ReviewStore interface {
	CreateReview(ctx context.Context, r model.Review) (model.Review, error)
	ListApprovedReviews(ctx context.Context, f ReviewFilter) ([]model.Review, error)
	ListReviews(ctx context.Context, limit int) ([]model.Review, error)
	SetReviewStatus(ctx context.Context, id string, status model.ReviewStatus) error
}

// KV is the Redis-backed JSON cache used for session state and estimates.
type KV interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
}

// Store defines the full persistence contract of the service.
type Store interface {
	InquiryStore
	ReviewStore
	KV
	HealthCheck(ctx context.Context) error
	Close() error
}

// ReviewFilter narrows the approved-review listing. Empty fields match everything.
type ReviewFilter struct {
	Country  string
	Category string
	Limit    int
}

type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a store backed by Redis for cache/session state and Postgres for records.
func NewHybrid(redisAddr, redisPass string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (*HybridStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPass,
		DB:       redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger}, nil
}

// --- inquiries ---

// CreateInquiry inserts a row into project_inquiries and returns it with the generated id.
func (s *HybridStore) CreateInquiry(ctx context.Context, inq model.Inquiry) (model.Inquiry, error) {
	if s.PG == nil {
		return inq, ErrUnavailable
	}
	if inq.CreatedAt.IsZero() {
		inq.CreatedAt = time.Now().UTC()
	}
	if inq.Status == "" {
		inq.Status = model.InquiryPending
	}

	err := s.PG.QueryRow(ctx, `
		INSERT INTO project_inquiries (
			source_id, project_types, ai_estimated_cost_usd, client_currency,
			client_name, client_email, details, budget, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10)
		RETURNING id::text
	`, inq.Service, inq.ProjectTypes, inq.EstimatedCostUSD, inq.ClientCurrency,
		inq.ClientName, inq.ClientEmail, inq.Details, inq.Budget, string(inq.Status), inq.CreatedAt,
	).Scan(&inq.ID)
	if err != nil {
		s.logger.Error("store.pg.insert_inquiry_failed", zap.Error(err))
		return inq, fmt.Errorf("insert inquiry: %w", err)
	}
	return inq, nil
}

// ListInquiries returns the newest inquiries first.
func (s *HybridStore) ListInquiries(ctx context.Context, limit int) ([]model.Inquiry, error) {
	if s.PG == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.PG.Query(ctx, `
		SELECT id::text, source_id, project_types, ai_estimated_cost_usd::float8, client_currency,
		       client_name, client_email, COALESCE(details, ''), COALESCE(budget, ''), status, created_at
		FROM project_inquiries
		ORDER BY created_at DESC
		LIMIT $1;
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	defer rows.Close()

	var results []model.Inquiry
	for rows.Next() {
		var inq model.Inquiry
		var status string
		if err := rows.Scan(&inq.ID, &inq.Service, &inq.ProjectTypes, &inq.EstimatedCostUSD,
			&inq.ClientCurrency, &inq.ClientName, &inq.ClientEmail, &inq.Details, &inq.Budget,
			&status, &inq.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inquiry: %w", err)
		}
		inq.Status = model.InquiryStatus(status)
		results = append(results, inq)
	}
	return results, rows.Err()
}

func (s *HybridStore) SetInquiryStatus(ctx context.Context, id string, status model.InquiryStatus) error {
	return s.setStatus(ctx, "project_inquiries", id, string(status))
}

// --- reviews ---

// CreateReview inserts a review and returns it with the generated id.
func (s *HybridStore) CreateReview(ctx context.Context, r model.Review) (model.Review, error) {
	if s.PG == nil {
		return r, ErrUnavailable
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = model.ReviewPending
	}

	err := s.PG.QueryRow(ctx, `
		INSERT INTO reviews (
			country_code, category, rating, title, comment,
			display_name, reviewer_email, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, r.CountryCode, r.Category, r.Rating, r.Title, r.Comment,
		r.DisplayName, r.ReviewerEmail, string(r.Status), r.CreatedAt,
	).Scan(&r.ID)
	if err != nil {
		s.logger.Error("store.pg.insert_review_failed", zap.Error(err))
		return r, fmt.Errorf("insert review: %w", err)
	}
	return r, nil
}

// ListApprovedReviews returns approved reviews, newest first, filtered by country and category.
func (s *HybridStore) ListApprovedReviews(ctx context.Context, f ReviewFilter) ([]model.Review, error) {
	if s.PG == nil {
		return nil, ErrUnavailable
	}
	query, args := approvedReviewsQuery(f)
	return s.queryReviews(ctx, query, args...)
}

// ListReviews returns reviews in every status, newest first.
func (s *HybridStore) ListReviews(ctx context.Context, limit int) ([]model.Review, error) {
	if s.PG == nil {
		return nil, ErrUnavailable
	}
	return s.queryReviews(ctx, reviewColumns+`
		FROM reviews
		ORDER BY created_at DESC
		LIMIT $1;
	`, clampLimit(limit))
}

func (s *HybridStore) SetReviewStatus(ctx context.Context, id string, status model.ReviewStatus) error {
	return s.setStatus(ctx, "reviews", id, string(status))
}

const reviewColumns = `
		SELECT id::text, country_code, category, rating, title, comment, display_name,
		       COALESCE(reviewer_email, ''), COALESCE(image, ''), COALESCE(email_verified, false),
		       status, created_at`

// approvedReviewsQuery builds the approved listing; only the non-empty filters become predicates.
func approvedReviewsQuery(f ReviewFilter) (string, []any) {
	query := reviewColumns + `
		FROM reviews
		WHERE status = $1`
	args := []any{string(model.ReviewApproved)}

	if f.Country != "" {
		args = append(args, f.Country)
		query += fmt.Sprintf(" AND country_code = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	args = append(args, clampLimit(f.Limit))
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d;", len(args))
	return query, args
}

func (s *HybridStore) queryReviews(ctx context.Context, query string, args ...any) ([]model.Review, error) {
	rows, err := s.PG.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var results []model.Review
	for rows.Next() {
		var r model.Review
		var status string
		if err := rows.Scan(&r.ID, &r.CountryCode, &r.Category, &r.Rating, &r.Title, &r.Comment,
			&r.DisplayName, &r.ReviewerEmail, &r.Image, &r.EmailVerified, &status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.Status = model.ReviewStatus(status)
		results = append(results, r)
	}
	return results, rows.Err()
}

// setStatus updates the status column of one row; table is always a package constant.
func (s *HybridStore) setStatus(ctx context.Context, table, id, status string) error {
	if s.PG == nil {
		return ErrUnavailable
	}
	var updated string
	err := s.PG.QueryRow(ctx,
		`UPDATE `+table+` SET status = $2 WHERE id::text = $1 RETURNING id::text`,
		id, status,
	).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	if err != nil {
		s.logger.Error("store.pg.status_update_failed",
			zap.String("table", table),
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("update %s status: %w", table, err)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}

// --- redis ---

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

// SetJSONIfAbsent stores value only when key does not exist yet and reports whether it did.
func (s *HybridStore) SetJSONIfAbsent(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return s.redis.SetNX(ctx, key, data, ttl).Result()
}

// GetJSON decodes the value at key into dest, returning ErrNotFound on a miss.
func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
