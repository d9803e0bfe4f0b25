package model

import (
	"fmt"
	"strings"
	"time"
)

// ReviewStatus is the moderation state of a globe review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewHidden   ReviewStatus = "hidden"
	ReviewRemoved  ReviewStatus = "removed"
)

// ParseReviewStatus normalizes s and validates it against the enumeration.
func ParseReviewStatus(s string) (ReviewStatus, error) {
	st := ReviewStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case ReviewPending, ReviewApproved, ReviewHidden, ReviewRemoved:
		return st, nil
	}
	return "", fmt.Errorf("%w: review status %q", ErrInvalidStatus, s)
}

// Review is a visitor review shown on the globe showcase.
type Review struct {
	ID            string       `json:"id"`
	CountryCode   string       `json:"country_code"`
	Category      string       `json:"category"`
	Rating        int          `json:"rating"`
	Title         string       `json:"title"`
	Comment       string       `json:"comment"`
	DisplayName   string       `json:"display_name"`
	ReviewerEmail string       `json:"reviewer_email,omitempty"`
	Image         string       `json:"image,omitempty"`
	EmailVerified bool         `json:"email_verified"`
	Status        ReviewStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
}
