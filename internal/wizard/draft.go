package wizard

import (
	"sync"
	"time"

	"github.com/xovato/agency-backend/internal/valuation"
	"github.com/xovato/agency-backend/pkg/model"
)

// State is the wizard position derived from a draft's fields.
type State string

const (
	StateSelectingService   State = "selecting_service"
	StateConfiguringOptions State = "configuring_options"
	StateEnteringContact    State = "entering_contact"
	StateSubmitting         State = "submitting"
	StateSubmitted          State = "submitted"
	StateSubmitError        State = "submit_error"
)

// SubmissionStatus tracks the persistence write of a draft.
type SubmissionStatus string

const (
	SubmissionIdle       SubmissionStatus = "idle"
	SubmissionSubmitting SubmissionStatus = "submitting"
	SubmissionSuccess    SubmissionStatus = "success"
	SubmissionError      SubmissionStatus = "error"
)

const (
	stepOptions = 1
	stepContact = 2
)

// Contact is the visitor's contact step.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Details string `json:"details"`
}

// Draft is one visitor's in-progress inquiry. Every field is guarded by mu.
type Draft struct {
	mu sync.Mutex

	id        string
	sessionID string
	country   string
	currency  model.CurrencyConfig

	service    string
	options    []string
	step       int
	estimate   float64
	estimating bool
	budget     string
	contact    Contact

	status    SubmissionStatus
	inquiryID string
	lastError string

	createdAt time.Time
	updatedAt time.Time
}

// Snapshot is a consistent, read-only view of a draft.
type Snapshot struct {
	ID                string                   `json:"id"`
	SessionID         string                   `json:"sessionId,omitempty"`
	State             State                    `json:"state"`
	Step              int                      `json:"step"`
	Service           string                   `json:"service"`
	Options           []string                 `json:"selectedOptions"`
	AvailableOptions  []string                 `json:"availableOptions"`
	EstimatedCostUSD  float64                  `json:"estimatedCostUsd"`
	IsEstimating      bool                     `json:"isEstimating"`
	Currency          model.CurrencyConfig     `json:"currency"`
	Valuation         valuation.Valuation      `json:"valuation"`
	RecommendedBudget *valuation.BudgetBracket `json:"recommendedBudget,omitempty"`
	Budget            string                   `json:"budget,omitempty"`
	Contact           Contact                  `json:"contact"`
	SubmissionStatus  SubmissionStatus         `json:"submissionStatus"`
	InquiryID         string                   `json:"inquiryId,omitempty"`
	Error             string                   `json:"error,omitempty"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

// stateLocked derives the wizard state. Caller holds d.mu.
func (d *Draft) stateLocked() State {
	switch d.status {
	case SubmissionSubmitting:
		return StateSubmitting
	case SubmissionSuccess:
		return StateSubmitted
	case SubmissionError:
		return StateSubmitError
	}
	if d.step == stepContact {
		return StateEnteringContact
	}
	if len(d.options) == 0 {
		return StateSelectingService
	}
	return StateConfiguringOptions
}

func (d *Draft) snapshotLocked() Snapshot {
	return Snapshot{
		ID:                d.id,
		SessionID:         d.sessionID,
		State:             d.stateLocked(),
		Step:              d.step,
		Service:           d.service,
		Options:           append([]string{}, d.options...),
		AvailableOptions:  model.ServiceOptions(d.service),
		EstimatedCostUSD:  d.estimate,
		IsEstimating:      d.estimating,
		Currency:          d.currency,
		Valuation:         valuation.Format(d.estimate, d.currency),
		RecommendedBudget: valuation.Recommend(d.estimate),
		Budget:            d.budget,
		Contact:           d.contact,
		SubmissionStatus:  d.status,
		InquiryID:         d.inquiryID,
		Error:             d.lastError,
		UpdatedAt:         d.updatedAt,
	}
}

// editableLocked rejects mutations of submitted or submitting drafts.
func (d *Draft) editableLocked() error {
	switch d.status {
	case SubmissionSuccess:
		return ErrDraftTerminal
	case SubmissionSubmitting:
		return ErrSubmissionInFlight
	}
	return nil
}

// toggleLocked flips option in the ordered selection.
func (d *Draft) toggleLocked(option string) {
	for i, o := range d.options {
		if o == option {
			d.options = append(d.options[:i:i], d.options[i+1:]...)
			return
		}
	}
	d.options = append(d.options, option)
}

func (d *Draft) inquiryLocked(now time.Time) model.Inquiry {
	return model.Inquiry{
		Service:          d.service,
		ProjectTypes:     append([]string{}, d.options...),
		EstimatedCostUSD: d.estimate,
		ClientCurrency:   d.currency.Code,
		ClientName:       d.contact.Name,
		ClientEmail:      d.contact.Email,
		Details:          d.contact.Details,
		Budget:           d.budget,
		Status:           model.InquiryPending,
		CreatedAt:        now.UTC(),
	}
}
