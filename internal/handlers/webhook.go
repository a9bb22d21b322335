package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"leasedesk/internal/metrics"
	"leasedesk/internal/models"
	"leasedesk/internal/pipeline"
	"leasedesk/internal/postmark"
)

// Processor ingests one inbound email.
type Processor interface {
	Process(ctx context.Context, inbound *postmark.InboundEmail, rawPayload string) (*pipeline.Result, error)
}

// PostmarkWebhookHandler handles inbound email notifications from Postmark.
// Authentication is a shared secret in the auth query parameter; everything
// past validation is delegated to the pipeline.
func PostmarkWebhookHandler(secret string, processor Processor, m *metrics.Metrics) echo.HandlerFunc {
	return func(c echo.Context) error {
		if secret == "" || c.QueryParam("auth") != secret {
			m.InboundRejected.Inc()
			return c.JSON(http.StatusUnauthorized, models.WebhookResponse{
				Error:   "unauthorized",
				Message: "Invalid or missing auth parameter",
			})
		}

		rawPayload, err := io.ReadAll(c.Request().Body)
		if err != nil {
			m.InboundRejected.Inc()
			return c.JSON(http.StatusBadRequest, models.WebhookResponse{
				Error:   "bad_request",
				Message: "Failed to read request body",
			})
		}

		var inbound postmark.InboundEmail
		if err := json.Unmarshal(rawPayload, &inbound); err != nil {
			m.InboundRejected.Inc()
			return c.JSON(http.StatusBadRequest, models.WebhookResponse{
				Error:   "bad_request",
				Message: "Malformed JSON payload",
			})
		}
		if err := inbound.Validate(); err != nil {
			m.InboundRejected.Inc()
			return c.JSON(http.StatusBadRequest, models.WebhookResponse{
				Error:   "bad_request",
				Message: err.Error(),
			})
		}

		m.InboundReceived.Inc()

		result, err := processor.Process(c.Request().Context(), &inbound, string(rawPayload))
		if err != nil {
			m.InboundFailed.Inc()
			log.Error().Err(err).Str("from", inbound.From).Str("to", inbound.To).Msg("Webhook processing failed")
			return c.JSON(http.StatusInternalServerError, models.WebhookResponse{
				Error:   "Internal server error",
				Message: "Failed to process email",
			})
		}

		return c.JSON(http.StatusOK, models.WebhookResponse{
			Success:  true,
			Message:  "Email processed successfully",
			ThreadID: result.ThreadID,
		})
	}
}
