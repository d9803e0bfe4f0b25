package wizard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/currency"
	"github.com/xovato/agency-backend/internal/debounce"
	"github.com/xovato/agency-backend/internal/metrics"
	"github.com/xovato/agency-backend/internal/valuation"
	"github.com/xovato/agency-backend/pkg/model"
	"github.com/xovato/agency-backend/pkg/utils"
)

// Estimator prices a service selection in USD. It never fails; 0 means unknown.
type Estimator interface {
	Estimate(ctx context.Context, service string, options []string, country string) float64
}

// Sink persists a finished inquiry.
type Sink interface {
	Submit(ctx context.Context, sessionID string, inq model.Inquiry) (model.Inquiry, error)
}

// CurrencySource fixes the currency of a session.
type CurrencySource interface {
	Resolve(ctx context.Context, sessionID, signal string) model.CurrencyConfig
}

// Options configures a Manager.
type Options struct {
	Debounce        time.Duration
	EstimateTimeout time.Duration
	SubmitTimeout   time.Duration
	Currencies      CurrencySource
}

// CreateParams describes a new draft.
type CreateParams struct {
	SessionID    string
	RegionSignal string
	Country      string
	Interest     string
}

// Manager owns every live draft. Each draft is mutated only under its own lock;
// estimate completions are applied only when their generation is still current.
type Manager struct {
	logger    *zap.Logger
	estimator Estimator
	sink      Sink
	opts      Options
	sched     *debounce.Scheduler
	now       func() time.Time

	mu     sync.RWMutex
	drafts map[string]*Draft
}

func NewManager(logger *zap.Logger, estimator Estimator, sink Sink, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.EstimateTimeout <= 0 {
		opts.EstimateTimeout = 15 * time.Second
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 15 * time.Second
	}
	return &Manager{
		logger:    logger,
		estimator: estimator,
		sink:      sink,
		opts:      opts,
		sched:     debounce.New(),
		now:       time.Now,
		drafts:    make(map[string]*Draft),
	}
}

// Create starts a draft. A known interest preselects the service; anything else
// falls back to the default service.
func (m *Manager) Create(ctx context.Context, p CreateParams) Snapshot {
	cur := currency.Resolve(p.RegionSignal)
	if m.opts.Currencies != nil && p.SessionID != "" {
		cur = m.opts.Currencies.Resolve(ctx, p.SessionID, p.RegionSignal)
	}

	service := model.DefaultService
	if model.IsValidService(p.Interest) {
		service = p.Interest
	}

	country := strings.ToUpper(strings.TrimSpace(p.Country))
	if country == "" {
		if r := currency.Region(p.RegionSignal); r != "EU" {
			country = r
		}
	}

	now := m.now()
	d := &Draft{
		id:        uuid.NewString(),
		sessionID: p.SessionID,
		country:   country,
		currency:  cur,
		service:   service,
		step:      stepOptions,
		status:    SubmissionIdle,
		createdAt: now,
		updatedAt: now,
	}

	m.mu.Lock()
	m.drafts[d.id] = d
	n := len(m.drafts)
	m.mu.Unlock()
	metrics.SetActiveDrafts(n)

	m.logger.Info("wizard.draft_created",
		zap.String("draft_id", d.id),
		zap.String("service", service),
		zap.String("currency", cur.Code),
		zap.String("country", country))

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (m *Manager) draft(id string) (*Draft, error) {
	m.mu.RLock()
	d, ok := m.drafts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	return d, nil
}

// update runs fn under the draft lock and returns the resulting snapshot.
func (m *Manager) update(id string, fn func(d *Draft) error) (Snapshot, error) {
	d, err := m.draft(id)
	if err != nil {
		return Snapshot{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := fn(d); err != nil {
		return d.snapshotLocked(), err
	}
	if d.status == SubmissionError {
		// an edit after a failed write returns the draft to the contact step for a retry
		d.status = SubmissionIdle
		d.lastError = ""
	}
	d.updatedAt = m.now()
	return d.snapshotLocked(), nil
}

func (m *Manager) Get(_ context.Context, id string) (Snapshot, error) {
	d, err := m.draft(id)
	if err != nil {
		return Snapshot{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked(), nil
}

// SelectService switches the service, clearing the selection and the estimate.
func (m *Manager) SelectService(_ context.Context, id, service string) (Snapshot, error) {
	return m.update(id, func(d *Draft) error {
		if !model.IsValidService(service) {
			return fmt.Errorf("%w: %q", ErrUnknownService, service)
		}
		if err := d.editableLocked(); err != nil {
			return err
		}
		if d.step != stepOptions {
			return fmt.Errorf("%w: go back to change the service", ErrStepBlocked)
		}
		m.sched.Cancel(d.id)
		d.service = service
		d.options = nil
		d.estimate = 0
		d.estimating = false
		return nil
	})
}

// ToggleOption adds or removes option and schedules a debounced estimate.
func (m *Manager) ToggleOption(_ context.Context, id, option string) (Snapshot, error) {
	return m.update(id, func(d *Draft) error {
		if err := d.editableLocked(); err != nil {
			return err
		}
		if d.step != stepOptions {
			return fmt.Errorf("%w: go back to change options", ErrStepBlocked)
		}
		if !model.IsValidOption(d.service, option) {
			return fmt.Errorf("%w: %q for %q", ErrUnknownOption, option, d.service)
		}
		d.toggleLocked(option)

		if len(d.options) == 0 {
			m.sched.Cancel(d.id)
			d.estimate = 0
			d.estimating = false
			return nil
		}
		d.estimating = true
		m.scheduleEstimateLocked(d)
		return nil
	})
}

// scheduleEstimateLocked captures the current selection and schedules its estimate.
// Caller holds d.mu.
func (m *Manager) scheduleEstimateLocked(d *Draft) {
	id, service, country := d.id, d.service, d.country
	options := append([]string{}, d.options...)

	m.sched.Schedule(id, m.opts.Debounce, func(ctx context.Context, gen uint64) {
		ectx, cancel := context.WithTimeout(ctx, m.opts.EstimateTimeout)
		defer cancel()
		v := m.estimator.Estimate(ectx, service, options, country)

		d.mu.Lock()
		defer d.mu.Unlock()
		if !m.sched.Current(id, gen) {
			metrics.IncStaleEstimate()
			m.logger.Debug("wizard.estimate_stale_discarded",
				zap.String("draft_id", id),
				zap.Uint64("generation", gen),
				zap.Float64("estimate", v))
			return
		}
		d.estimate = v
		d.estimating = false
		d.updatedAt = m.now()
		m.logger.Debug("wizard.estimate_applied",
			zap.String("draft_id", id),
			zap.Strings("options", options),
			zap.Float64("estimate", v))
	})
}

// SelectBudget sets the visitor's budget bracket; an empty id clears it.
func (m *Manager) SelectBudget(_ context.Context, id, budgetID string) (Snapshot, error) {
	return m.update(id, func(d *Draft) error {
		if budgetID != "" {
			if _, ok := valuation.BracketByID(budgetID); !ok {
				return fmt.Errorf("%w: %q", ErrUnknownBudget, budgetID)
			}
		}
		if err := d.editableLocked(); err != nil {
			return err
		}
		d.budget = budgetID
		return nil
	})
}

// Advance moves to the contact step; it needs at least one selected option.
func (m *Manager) Advance(_ context.Context, id string) (Snapshot, error) {
	return m.update(id, func(d *Draft) error {
		if err := d.editableLocked(); err != nil {
			return err
		}
		if len(d.options) == 0 {
			return fmt.Errorf("%w: select at least one option", ErrStepBlocked)
		}
		d.step = stepContact
		return nil
	})
}

// Back returns to the options step keeping the selection.
func (m *Manager) Back(_ context.Context, id string) (Snapshot, error) {
	return m.update(id, func(d *Draft) error {
		if err := d.editableLocked(); err != nil {
			return err
		}
		d.step = stepOptions
		return nil
	})
}

// SetContact records the contact step fields.
func (m *Manager) SetContact(_ context.Context, id string, c Contact) (Snapshot, error) {
	return m.update(id, func(d *Draft) error {
		if err := d.editableLocked(); err != nil {
			return err
		}
		if d.step != stepContact {
			return fmt.Errorf("%w: contact details belong to step %d", ErrStepBlocked, stepContact)
		}
		d.contact = Contact{
			Name:    strings.TrimSpace(c.Name),
			Email:   strings.TrimSpace(c.Email),
			Details: strings.TrimSpace(c.Details),
		}
		return nil
	})
}

// Submit persists the draft. The draft is marked submitting before the write so a
// concurrent Submit is rejected; on failure every field is kept for a retry.
func (m *Manager) Submit(ctx context.Context, id string) (Snapshot, error) {
	d, err := m.draft(id)
	if err != nil {
		return Snapshot{}, err
	}

	d.mu.Lock()
	switch {
	case d.status == SubmissionSuccess:
		err = ErrDraftTerminal
	case d.status == SubmissionSubmitting:
		err = ErrSubmissionInFlight
	case d.step != stepContact:
		err = fmt.Errorf("%w: submit from the contact step", ErrStepBlocked)
	case d.contact.Name == "" || d.contact.Email == "":
		err = ErrContactRequired
	}
	if err != nil {
		snap := d.snapshotLocked()
		d.mu.Unlock()
		return snap, err
	}
	d.status = SubmissionSubmitting
	d.lastError = ""
	d.updatedAt = m.now()
	inq := d.inquiryLocked(m.now())
	sessionID := d.sessionID
	d.mu.Unlock()

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.SubmitTimeout)
	defer cancel()
	saved, serr := m.sink.Submit(sctx, sessionID, inq)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.updatedAt = m.now()
	if serr != nil {
		d.status = SubmissionError
		d.lastError = ErrSubmitFailed.Error()
		m.logger.Warn("wizard.submit_failed",
			zap.String("draft_id", id),
			zap.String("email", utils.MaskEmail(inq.ClientEmail)),
			zap.Error(serr))
		return d.snapshotLocked(), fmt.Errorf("%w: %v", ErrSubmitFailed, serr)
	}

	d.status = SubmissionSuccess
	d.inquiryID = saved.ID
	m.sched.Cancel(id)
	m.logger.Info("wizard.submitted",
		zap.String("draft_id", id),
		zap.String("inquiry_id", saved.ID),
		zap.String("service", inq.Service))
	return d.snapshotLocked(), nil
}

// Discard drops a draft and any estimate pending for it.
func (m *Manager) Discard(_ context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.drafts[id]
	delete(m.drafts, id)
	n := len(m.drafts)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	m.sched.Cancel(id)
	metrics.SetActiveDrafts(n)
	return nil
}

// Sweep discards drafts untouched for longer than idle, except ones mid-submission.
// Each draft is checked and removed under its own lock, so an edit that lands first
// keeps it alive. It returns the number of drafts removed.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	var expired []string
	for id, d := range m.drafts {
		d.mu.Lock()
		if d.status != SubmissionSubmitting && d.updatedAt.Before(cutoff) {
			delete(m.drafts, id)
			expired = append(expired, id)
		}
		d.mu.Unlock()
	}
	n := len(m.drafts)
	m.mu.Unlock()

	for _, id := range expired {
		m.sched.Cancel(id)
	}
	if len(expired) > 0 {
		metrics.SetActiveDrafts(n)
		m.logger.Info("wizard.drafts_swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Len reports the number of live drafts.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.drafts)
}

// Close stops pending estimates and waits for running ones.
func (m *Manager) Close() {
	m.sched.Stop()
}
