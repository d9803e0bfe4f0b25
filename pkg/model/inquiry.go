package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidStatus is returned when a status is not part of its enumeration.
var ErrInvalidStatus = errors.New("invalid status")

// InquiryStatus is the admin-managed lifecycle of a persisted inquiry.
type InquiryStatus string

const (
	InquiryPending   InquiryStatus = "pending"
	InquiryContacted InquiryStatus = "contacted"
	InquiryClosed    InquiryStatus = "closed"
)

// ParseInquiryStatus normalizes s and validates it against the enumeration.
func ParseInquiryStatus(s string) (InquiryStatus, error) {
	st := InquiryStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case InquiryPending, InquiryContacted, InquiryClosed:
		return st, nil
	}
	return "", fmt.Errorf("%w: inquiry status %q", ErrInvalidStatus, s)
}

// Inquiry is a submitted project inquiry as stored in project_inquiries.
type Inquiry struct {
	ID               string        `json:"id"`
	Service          string        `json:"source_id"`
	ProjectTypes     []string      `json:"project_types"`
	EstimatedCostUSD float64       `json:"ai_estimated_cost_usd"`
	ClientCurrency   string        `json:"client_currency"`
	ClientName       string        `json:"client_name"`
	ClientEmail      string        `json:"client_email"`
	Details          string        `json:"details"`
	Budget           string        `json:"budget,omitempty"`
	Status           InquiryStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
}
