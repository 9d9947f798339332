package api

import (
	"github.com/gofiber/fiber/v2"

	"driveocr/internal/registry"
)

func (s *Server) handleListUsers(c *fiber.Ctx) error {
	includeDeleted := c.QueryBool("include_deleted")
	users, err := s.reg.ListUsers(c.UserContext(), includeDeleted)
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(fiber.Map{"items": users, "total_count": len(users)})
}

func (s *Server) handleCreateUser(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	var in registry.UserCreate
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid JSON body")
	}
	if in.Email == "" || in.Name == "" {
		return errorJSON(c, fiber.StatusBadRequest, "email and name are required")
	}

	user, err := s.reg.CreateUser(c.UserContext(), in)
	if err != nil {
		return registryError(c, err)
	}

	s.syncUser(c, *user)
	s.audit(c, id, "user.create", "created user "+user.ID)
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (s *Server) handleGetUser(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	userID := c.Params("id")
	if !id.IsAdmin() && id.UserID != userID {
		return errorJSON(c, fiber.StatusForbidden, "cannot read another user")
	}

	user, err := s.reg.GetUser(c.UserContext(), userID)
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(user)
}

func (s *Server) handleUpdateUser(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	userID := c.Params("id")
	if !id.IsAdmin() && id.UserID != userID {
		return errorJSON(c, fiber.StatusForbidden, "cannot update another user")
	}

	var in registry.UserUpdate
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid JSON body")
	}

	// Role changes are an admin capability.
	if in.Role != nil && !id.IsAdmin() {
		return errorJSON(c, fiber.StatusForbidden, "cannot change own role")
	}

	user, err := s.reg.UpdateUser(c.UserContext(), userID, in)
	if err != nil {
		return registryError(c, err)
	}

	s.syncUser(c, *user)
	s.audit(c, id, "user.update", "updated user "+user.ID)
	return c.JSON(user)
}

func (s *Server) handleDeleteUser(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	user, err := s.reg.DeleteUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return registryError(c, err)
	}

	s.syncUser(c, *user)
	s.audit(c, id, "user.delete", "deleted user "+user.ID)
	return c.JSON(user)
}

// syncUser mirrors the registry user into the warehouse. The registry is the
// source of truth, so a mirror failure is logged and the request still
// succeeds; the next write re-syncs.
func (s *Server) syncUser(c *fiber.Ctx, user registry.User) {
	if err := s.wh.SyncUser(c.UserContext(), user); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to mirror user to warehouse")
	}
}
