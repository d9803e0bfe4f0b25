package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/xovato/agency-backend/internal/chat"
	"github.com/xovato/agency-backend/internal/notify"
	"github.com/xovato/agency-backend/internal/oracle"
	"github.com/xovato/agency-backend/internal/reviews"
	"github.com/xovato/agency-backend/internal/store"
	"github.com/xovato/agency-backend/internal/wizard"
	"github.com/xovato/agency-backend/pkg/model"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, wizard.ErrUnknownService),
		errors.Is(err, wizard.ErrUnknownOption),
		errors.Is(err, wizard.ErrUnknownBudget),
		errors.Is(err, wizard.ErrContactRequired),
		errors.Is(err, reviews.ErrMissingFields),
		errors.Is(err, reviews.ErrInvalidEmail),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, chat.ErrEmptyConversation):
		return fiber.StatusBadRequest
	case errors.Is(err, wizard.ErrDraftNotFound),
		errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, wizard.ErrStepBlocked),
		errors.Is(err, wizard.ErrSubmissionInFlight),
		errors.Is(err, wizard.ErrDraftTerminal):
		return fiber.StatusConflict
	case errors.Is(err, wizard.ErrSubmitFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, store.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, oracle.ErrNotConfigured),
		errors.Is(err, notify.ErrNotConfigured):
		return fiber.StatusInternalServerError
	}
	return fiber.StatusInternalServerError
}

// publicMessage hides internal error detail on 5xx responses.
func publicMessage(status int, err error) string {
	switch {
	case errors.Is(err, oracle.ErrNotConfigured), errors.Is(err, notify.ErrNotConfigured):
		return "server configuration error"
	case errors.Is(err, wizard.ErrSubmitFailed):
		return wizard.ErrSubmitFailed.Error()
	case status >= fiber.StatusInternalServerError:
		return "internal error"
	}
	return err.Error()
}

func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	return c.Status(status).JSON(fiber.Map{"error": publicMessage(status, err)})
}
