package api

import (
	"github.com/gofiber/fiber/v2"

	"driveocr/internal/warehouse"
)

// handleSearch queries the file metadata table.
//
// Non-admin callers are confined to documents matched to their own user ID,
// whatever the request body asked for, and never see deleted rows.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	var q warehouse.SearchQuery
	if err := c.BodyParser(&q); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid JSON body")
	}

	if !id.IsAdmin() {
		q.UserID = id.UserID
		q.IncludeDeleted = false
	}

	result, err := s.wh.Search(c.UserContext(), q)
	if err != nil {
		s.log.Error().Err(err).Msg("Search query failed")
		return errorJSON(c, fiber.StatusInternalServerError, "search failed")
	}
	return c.JSON(result)
}
