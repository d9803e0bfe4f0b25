package api

import "github.com/xovato/agency-backend/internal/chat"

// CreateDraftRequest starts a wizard draft. Region is a timezone, country code or
// locale tag used to pick the display currency.
type CreateDraftRequest struct {
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
	Region    string `json:"region" validate:"omitempty,max=64"`
	Interest  string `json:"interest" validate:"omitempty,max=64"`
}

type SelectServiceRequest struct {
	Service string `json:"service" validate:"required,max=64"`
}

type ToggleOptionRequest struct {
	Option string `json:"option" validate:"required,max=64"`
}

type SelectBudgetRequest struct {
	Budget string `json:"budget" validate:"omitempty,max=32"`
}

type ContactRequest struct {
	Name    string `json:"name" validate:"max=120"`
	Email   string `json:"email" validate:"omitempty,email,max=254"`
	Details string `json:"details" validate:"max=5000"`
}

type ReviewRequest struct {
	CountryCode   string `json:"country_code" validate:"omitempty,len=2,alpha"`
	Category      string `json:"category" validate:"max=64"`
	Rating        int    `json:"rating"`
	Title         string `json:"title" validate:"max=120"`
	Comment       string `json:"comment" validate:"max=2000"`
	DisplayName   string `json:"display_name" validate:"max=80"`
	ReviewerEmail string `json:"reviewer_email" validate:"max=254"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

type ChatRequest struct {
	Messages []chat.Message `json:"messages" validate:"required,min=1,max=100,dive"`
}
