package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the handlers and checks mounted by RegisterRoutes. Nil handlers leave
// their routes unmounted.
type Deps struct {
	NATS  *nats.Conn
	Store HealthChecker

	Wizard   *WizardHandler
	Market   *MarketHandler
	Geo      *GeoResolver
	Calendar *CalendarHandler
	Chat     *ChatHandler
	Reviews  *ReviewHandler
	Sessions *SessionHandler

	Admin      *AdminHandler
	AdminGuard fiber.Handler
}

func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"nats":  "ok",
			"store": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		if d.NATS == nil || !d.NATS.IsConnected() {
			checks["nats"] = "disconnected"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		} else if err := d.NATS.FlushTimeout(1 * time.Second); err != nil {
			checks["nats"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		if d.Store != nil {
			healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := d.Store.HealthCheck(healthCtx); err != nil {
				checks["store"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// API routes
	v1 := app.Group("/api/v1")

	if d.Wizard != nil {
		v1.Get("/services", d.Wizard.Catalog)
		drafts := v1.Group("/drafts")
		drafts.Post("/", d.Wizard.Create)
		drafts.Get("/:id", d.Wizard.Get)
		drafts.Delete("/:id", d.Wizard.Discard)
		drafts.Put("/:id/service", d.Wizard.SelectService)
		drafts.Post("/:id/options", d.Wizard.ToggleOption)
		drafts.Put("/:id/budget", d.Wizard.SelectBudget)
		drafts.Put("/:id/contact", d.Wizard.SetContact)
		drafts.Post("/:id/advance", d.Wizard.Advance)
		drafts.Post("/:id/back", d.Wizard.Back)
		drafts.Post("/:id/submit", d.Wizard.Submit)
	}
	if d.Market != nil {
		v1.Get("/market", d.Market.Quote)
	}
	if d.Geo != nil {
		v1.Get("/geo", d.Geo.Handler)
	}
	if d.Calendar != nil {
		v1.Post("/calendar", d.Calendar.Forward)
	}
	if d.Chat != nil {
		v1.Post("/chat", d.Chat.Reply)
	}
	if d.Reviews != nil {
		v1.Get("/reviews", d.Reviews.List)
		v1.Post("/reviews", d.Reviews.Submit)
		v1.Get("/reviews/regions", d.Reviews.Regions)
	}
	if d.Sessions != nil {
		v1.Get("/session/:id", d.Sessions.Get)
		v1.Post("/session/:id/intro", d.Sessions.Intro)
	}

	if d.Admin != nil && d.AdminGuard != nil {
		adm := v1.Group("/admin", d.AdminGuard)
		adm.Get("/dashboard", d.Admin.Dashboard)
		adm.Patch("/inquiries/:id/status", d.Admin.SetInquiryStatus)
		adm.Patch("/reviews/:id/status", d.Admin.SetReviewStatus)
	}
}
