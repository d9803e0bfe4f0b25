package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/valuation"
	"github.com/xovato/agency-backend/internal/wizard"
	"github.com/xovato/agency-backend/pkg/model"
)

// DraftService is the wizard surface the HTTP layer drives.
type DraftService interface {
	Create(ctx context.Context, p wizard.CreateParams) wizard.Snapshot
	Get(ctx context.Context, id string) (wizard.Snapshot, error)
	SelectService(ctx context.Context, id, service string) (wizard.Snapshot, error)
	ToggleOption(ctx context.Context, id, option string) (wizard.Snapshot, error)
	SelectBudget(ctx context.Context, id, budgetID string) (wizard.Snapshot, error)
	Advance(ctx context.Context, id string) (wizard.Snapshot, error)
	Back(ctx context.Context, id string) (wizard.Snapshot, error)
	SetContact(ctx context.Context, id string, c wizard.Contact) (wizard.Snapshot, error)
	Submit(ctx context.Context, id string) (wizard.Snapshot, error)
	Discard(ctx context.Context, id string) error
}

// WizardHandler exposes inquiry drafts under /api/v1/drafts.
type WizardHandler struct {
	logger *zap.Logger
	drafts DraftService
	geo    *GeoResolver
}

func NewWizardHandler(logger *zap.Logger, drafts DraftService, geo *GeoResolver) *WizardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if geo == nil {
		geo = NewGeoResolver(nil, "")
	}
	return &WizardHandler{logger: logger, drafts: drafts, geo: geo}
}

// Catalog lists the services, their options and the budget brackets.
func (h *WizardHandler) Catalog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"services": model.Catalog(),
		"budgets":  valuation.Brackets(),
	})
}

func (h *WizardHandler) Create(c *fiber.Ctx) error {
	var req CreateDraftRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}
	}
	snap := h.drafts.Create(c.UserContext(), wizard.CreateParams{
		SessionID:    req.SessionID,
		RegionSignal: req.Region,
		Country:      h.geo.PricingCountry(c),
		Interest:     req.Interest,
	})
	return c.Status(fiber.StatusCreated).JSON(snap)
}

func (h *WizardHandler) Get(c *fiber.Ctx) error {
	snap, err := h.drafts.Get(c.UserContext(), c.Params("id"))
	return h.respond(c, snap, err)
}

func (h *WizardHandler) SelectService(c *fiber.Ctx) error {
	var req SelectServiceRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	snap, err := h.drafts.SelectService(c.UserContext(), c.Params("id"), req.Service)
	return h.respond(c, snap, err)
}

func (h *WizardHandler) ToggleOption(c *fiber.Ctx) error {
	var req ToggleOptionRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	snap, err := h.drafts.ToggleOption(c.UserContext(), c.Params("id"), req.Option)
	return h.respond(c, snap, err)
}

func (h *WizardHandler) SelectBudget(c *fiber.Ctx) error {
	var req SelectBudgetRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	snap, err := h.drafts.SelectBudget(c.UserContext(), c.Params("id"), req.Budget)
	return h.respond(c, snap, err)
}

func (h *WizardHandler) Advance(c *fiber.Ctx) error {
	snap, err := h.drafts.Advance(c.UserContext(), c.Params("id"))
	return h.respond(c, snap, err)
}

func (h *WizardHandler) Back(c *fiber.Ctx) error {
	snap, err := h.drafts.Back(c.UserContext(), c.Params("id"))
	return h.respond(c, snap, err)
}

func (h *WizardHandler) SetContact(c *fiber.Ctx) error {
	var req ContactRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	snap, err := h.drafts.SetContact(c.UserContext(), c.Params("id"), wizard.Contact{
		Name:    req.Name,
		Email:   req.Email,
		Details: req.Details,
	})
	return h.respond(c, snap, err)
}

func (h *WizardHandler) Submit(c *fiber.Ctx) error {
	snap, err := h.drafts.Submit(c.UserContext(), c.Params("id"))
	if err != nil {
		h.logger.Warn("api.submit_rejected",
			zap.String("draft_id", c.Params("id")),
			zap.Error(err))
	}
	return h.respond(c, snap, err)
}

func (h *WizardHandler) Discard(c *fiber.Ctx) error {
	if err := h.drafts.Discard(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// respond writes the snapshot, or the error with the draft's current state when
// one is known so the client can re-render.
func (h *WizardHandler) respond(c *fiber.Ctx, snap wizard.Snapshot, err error) error {
	if err == nil {
		return c.JSON(snap)
	}
	status := statusFor(err)
	body := fiber.Map{"error": publicMessage(status, err)}
	if snap.ID != "" {
		body["draft"] = snap
	}
	return c.Status(status).JSON(body)
}
