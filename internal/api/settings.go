package api

import (
	"github.com/gofiber/fiber/v2"

	"driveocr/internal/registry"
)

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	settings, err := s.reg.GetSettings(c.UserContext())
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(settings)
}

func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	var in registry.AuthSettingsUpdate
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid JSON body")
	}

	settings, err := s.reg.UpdateSettings(c.UserContext(), in)
	if err != nil {
		return registryError(c, err)
	}

	s.audit(c, id, "settings.update", "changed authorization settings")
	return c.JSON(settings)
}
