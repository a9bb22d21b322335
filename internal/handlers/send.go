package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"leasedesk/internal/models"
	"leasedesk/internal/outbound"
)

// Dispatcher sends a persisted draft message.
type Dispatcher interface {
	Dispatch(ctx context.Context, req outbound.Request) (string, error)
}

// SendEmailHandler sends a previously persisted message through the
// delivery provider. Used to resend queued drafts whose automatic dispatch
// failed, and by internal tooling.
func SendEmailHandler(dispatcher Dispatcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req outbound.Request
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.SendResponse{
				Error: "Malformed request body",
			})
		}
		if err := req.Validate(); err != nil {
			return c.JSON(http.StatusBadRequest, models.SendResponse{
				Error: err.Error(),
			})
		}

		providerID, err := dispatcher.Dispatch(c.Request().Context(), req)
		if err != nil {
			log.Error().Err(err).Str("message_id", req.MessageID).Msg("Send failed")
			return c.JSON(http.StatusInternalServerError, models.SendResponse{
				Error: "Failed to send email",
			})
		}

		return c.JSON(http.StatusOK, models.SendResponse{
			Success:   true,
			MessageID: providerID,
		})
	}
}
