package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/admin"
	"github.com/xovato/agency-backend/internal/chat"
	"github.com/xovato/agency-backend/internal/httpclient"
	"github.com/xovato/agency-backend/internal/notify"
	"github.com/xovato/agency-backend/internal/oracle"
	"github.com/xovato/agency-backend/internal/reviews"
	"github.com/xovato/agency-backend/internal/session"
	"github.com/xovato/agency-backend/pkg/model"
)

// MarketQuoter prices a raw market query.
type MarketQuoter interface {
	MarketQuote(ctx context.Context, q, countryCode string) (oracle.Quote, error)
}

// MarketHandler serves GET /market?q=.
type MarketHandler struct {
	logger *zap.Logger
	quotes MarketQuoter
	geo    *GeoResolver
}

func NewMarketHandler(logger *zap.Logger, quotes MarketQuoter, geo *GeoResolver) *MarketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if geo == nil {
		geo = NewGeoResolver(nil, "")
	}
	return &MarketHandler{logger: logger, quotes: quotes, geo: geo}
}

func (h *MarketHandler) Quote(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No query provided"})
	}
	cc := h.geo.PricingCountry(c)
	quote, err := h.quotes.MarketQuote(c.UserContext(), q, cc)
	if err != nil {
		if errors.Is(err, oracle.ErrNotConfigured) {
			h.logger.Error("api.market_not_configured", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server configuration error"})
		}
		h.logger.Warn("api.market_failed", zap.String("query", q), zap.String("country", cc), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch data"})
	}
	return c.JSON(quote)
}

// CalendarNotifier forwards a payload to the scheduling worker.
type CalendarNotifier interface {
	Notify(ctx context.Context, payload any) (json.RawMessage, error)
}

// CalendarHandler proxies POST /calendar to the scheduling worker.
type CalendarHandler struct {
	logger   *zap.Logger
	notifier CalendarNotifier
}

func NewCalendarHandler(logger *zap.Logger, notifier CalendarNotifier) *CalendarHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarHandler{logger: logger, notifier: notifier}
}

func (h *CalendarHandler) Forward(c *fiber.Ctx) error {
	var payload map[string]any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}

	resp, err := h.notifier.Notify(c.UserContext(), payload)
	if err != nil {
		var se *httpclient.StatusError
		switch {
		case errors.Is(err, notify.ErrNotConfigured):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Calendar API URL not configured"})
		case errors.As(err, &se):
			return c.Status(se.Status).JSON(fiber.Map{"error": "Upstream server error", "details": se.Body})
		}
		h.logger.Error("api.calendar_failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(resp)
}

// Responder answers an assistant conversation.
type Responder interface {
	Reply(ctx context.Context, messages []chat.Message) (chat.Reply, error)
}

type ChatHandler struct {
	responder Responder
}

func NewChatHandler(responder Responder) *ChatHandler {
	return &ChatHandler{responder: responder}
}

func (h *ChatHandler) Reply(c *fiber.Ctx) error {
	var req ChatRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	reply, err := h.responder.Reply(c.UserContext(), req.Messages)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reply)
}

// ReviewService is the globe review surface.
type ReviewService interface {
	Submit(ctx context.Context, in reviews.ReviewInput) (model.Review, error)
	ListApproved(ctx context.Context, country, category string) []model.Review
}

type ReviewHandler struct {
	logger  *zap.Logger
	reviews ReviewService
	geo     *GeoResolver
}

func NewReviewHandler(logger *zap.Logger, svc ReviewService, geo *GeoResolver) *ReviewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if geo == nil {
		geo = NewGeoResolver(nil, "")
	}
	return &ReviewHandler{logger: logger, reviews: svc, geo: geo}
}

// List serves GET /reviews?country=&category=. The visitor's country is used when
// none is given.
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	country := c.Query("country")
	if country == "" {
		country = h.geo.Country(c)
	}
	rows := h.reviews.ListApproved(c.UserContext(), country, c.Query("category"))
	return c.JSON(fiber.Map{"reviews": rows})
}

func (h *ReviewHandler) Submit(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	country := req.CountryCode
	if country == "" {
		country = h.geo.Country(c)
	}
	r, err := h.reviews.Submit(c.UserContext(), reviews.ReviewInput{
		CountryCode: country,
		Category:    req.Category,
		Rating:      req.Rating,
		Title:       req.Title,
		Comment:     req.Comment,
		DisplayName: req.DisplayName,
		Email:       req.ReviewerEmail,
	})
	if err != nil {
		if statusFor(err) >= fiber.StatusInternalServerError {
			h.logger.Error("api.review_submit_failed", zap.Error(err))
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

// Regions serves GET /reviews/regions?progress= for the globe slider.
func (h *ReviewHandler) Regions(c *fiber.Ctx) error {
	visitor := h.geo.Country(c)
	active := reviews.RegionForCountry(visitor)
	if raw := c.Query("progress"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "progress must be a number"})
		}
		active = reviews.RegionAt(p)
	}
	return c.JSON(fiber.Map{
		"regions": reviews.Regions(),
		"active":  active,
		"country": reviews.CountryFor(active, visitor),
	})
}

// AdminService backs the dashboard routes.
type AdminService interface {
	Dashboard(ctx context.Context) (admin.Dashboard, error)
	SetInquiryStatus(ctx context.Context, id, status, by string) error
	SetReviewStatus(ctx context.Context, id, status, by string) error
}

type AdminHandler struct {
	logger *zap.Logger
	svc    AdminService
}

func NewAdminHandler(logger *zap.Logger, svc AdminService) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{logger: logger, svc: svc}
}

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.svc.Dashboard(c.UserContext())
	if err != nil {
		h.logger.Error("api.admin_dashboard_failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(d)
}

func (h *AdminHandler) SetInquiryStatus(c *fiber.Ctx) error {
	return h.setStatus(c, h.svc.SetInquiryStatus)
}

func (h *AdminHandler) SetReviewStatus(c *fiber.Ctx) error {
	return h.setStatus(c, h.svc.SetReviewStatus)
}

func (h *AdminHandler) setStatus(c *fiber.Ctx, fn func(ctx context.Context, id, status, by string) error) error {
	var req StatusRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	by, _ := c.Locals(admin.LocalsEmail).(string)
	id := c.Params("id")
	if err := fn(c.UserContext(), id, req.Status, by); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "status": strings.ToLower(strings.TrimSpace(req.Status))})
}

// SessionService stores per-visitor state.
type SessionService interface {
	Get(ctx context.Context, id string) (session.State, error)
	MarkIntroSeen(ctx context.Context, id, signal string) (session.State, error)
}

type SessionHandler struct {
	sessions SessionService
}

func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Get(c *fiber.Ctx) error {
	st, err := h.sessions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(st)
}

// Intro records that the intro animation was shown. The optional region query
// seeds the session currency when the session is new.
func (h *SessionHandler) Intro(c *fiber.Ctx) error {
	st, err := h.sessions.MarkIntroSeen(c.UserContext(), c.Params("id"), c.Query("region"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(st)
}
