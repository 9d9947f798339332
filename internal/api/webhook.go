package api

import (
	"github.com/gofiber/fiber/v2"

	"driveocr/internal/event"
)

// handleDriveWebhook accepts a Drive change notification and publishes the
// canonical event. The response acknowledges acceptance only; processing
// happens asynchronously on the worker.
func (s *Server) handleDriveWebhook(c *fiber.Ctx) error {
	var payload event.WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid JSON body")
	}
	if err := payload.Validate(); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	ev := payload.ToChangeEvent()
	log := s.log.With().Str("file_id", ev.FileID).Str("change_type", ev.ChangeType).Logger()

	if err := s.publisher.Publish(c.UserContext(), ev); err != nil {
		log.Error().Err(err).Msg("Failed to publish change event")
		return errorJSON(c, fiber.StatusInternalServerError, "failed to enqueue change")
	}

	log.Info().Msg("Change event accepted")
	return c.JSON(fiber.Map{
		"status":  "accepted",
		"file_id": ev.FileID,
	})
}
