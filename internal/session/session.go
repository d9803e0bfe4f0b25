// Package session keeps per-visitor state in Redis under session:{id}. The
// currency is fixed the first time a session is resolved.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/currency"
	"github.com/xovato/agency-backend/internal/store"
	"github.com/xovato/agency-backend/pkg/model"
)

// KV is the Redis access the session store needs.
type KV interface {
	store.KV
	SetJSONIfAbsent(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

// State is what the service remembers about a visitor.
type State struct {
	Currency  model.CurrencyConfig `json:"currency"`
	Region    string               `json:"region"`
	IntroSeen bool                 `json:"introSeen"`
	CreatedAt time.Time            `json:"createdAt"`
}

type Store struct {
	logger *zap.Logger
	kv     KV
	ttl    time.Duration
	now    func() time.Time
}

func New(logger *zap.Logger, kv KV, ttl time.Duration) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{logger: logger, kv: kv, ttl: ttl, now: time.Now}
}

func key(id string) string { return "session:" + id }

// Get returns the stored state, or an error wrapping store.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (State, error) {
	var st State
	err := s.kv.GetJSON(ctx, key(id), &st)
	return st, err
}

// Resolve returns the session's currency, resolving it from signal and storing it
// when the session is new. It never fails; Redis errors yield the signal's currency.
func (s *Store) Resolve(ctx context.Context, sessionID, signal string) model.CurrencyConfig {
	st, err := s.ensure(ctx, sessionID, signal)
	if err != nil {
		s.logger.Warn("session.resolve_failed", zap.String("session_id", sessionID), zap.Error(err))
		return currency.Resolve(signal)
	}
	return st.Currency
}

func (s *Store) ensure(ctx context.Context, id, signal string) (State, error) {
	st, err := s.Get(ctx, id)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return State{}, err
	}

	fresh := State{
		Currency:  currency.Resolve(signal),
		Region:    currency.Region(signal),
		CreatedAt: s.now().UTC(),
	}
	created, err := s.kv.SetJSONIfAbsent(ctx, key(id), fresh, s.ttl)
	if err != nil {
		return State{}, fmt.Errorf("store session: %w", err)
	}
	if created {
		s.logger.Debug("session.created",
			zap.String("session_id", id),
			zap.String("currency", fresh.Currency.Code))
		return fresh, nil
	}
	// another request created it first
	return s.Get(ctx, id)
}

// MarkIntroSeen records that the intro animation was shown.
func (s *Store) MarkIntroSeen(ctx context.Context, id, signal string) (State, error) {
	st, err := s.ensure(ctx, id, signal)
	if err != nil {
		return State{}, err
	}
	if st.IntroSeen {
		return st, nil
	}
	st.IntroSeen = true
	if err := s.kv.SetJSON(ctx, key(id), st, s.ttl); err != nil {
		return State{}, fmt.Errorf("store session: %w", err)
	}
	return st, nil
}
