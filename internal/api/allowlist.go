package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"driveocr/internal/registry"
)

// Domain allow-list. All routes here are admin-only, enforced at the group.

func (s *Server) handleListDomains(c *fiber.Ctx) error {
	domains, err := s.reg.ListDomains(c.UserContext(), c.QueryBool("active_only"))
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(fiber.Map{"items": domains, "total_count": len(domains)})
}

func (s *Server) handleCreateDomain(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	var in registry.AuthDomainCreate
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid JSON body")
	}
	in.Domain = strings.ToLower(strings.TrimSpace(in.Domain))
	if in.Domain == "" || strings.ContainsAny(in.Domain, "@ ") {
		return errorJSON(c, fiber.StatusBadRequest, "a bare domain name is required")
	}

	domain, err := s.reg.CreateDomain(c.UserContext(), in)
	if err != nil {
		return registryError(c, err)
	}

	s.audit(c, id, "domain.create", "allowed domain "+domain.Domain)
	return c.Status(fiber.StatusCreated).JSON(domain)
}

func (s *Server) handleGetDomain(c *fiber.Ctx) error {
	domain, err := s.reg.GetDomain(c.UserContext(), c.Params("id"))
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(domain)
}

func (s *Server) handleUpdateDomain(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	var in registry.AuthDomainUpdate
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid JSON body")
	}

	domain, err := s.reg.UpdateDomain(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return registryError(c, err)
	}

	s.audit(c, id, "domain.update", "updated domain "+domain.Domain)
	return c.JSON(domain)
}

func (s *Server) handleDeleteDomain(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	domainID := c.Params("id")
	if err := s.reg.DeleteDomain(c.UserContext(), domainID); err != nil {
		return registryError(c, err)
	}

	s.audit(c, id, "domain.delete", "removed domain entry "+domainID)
	return c.SendStatus(fiber.StatusNoContent)
}

// Email allow-list.

func (s *Server) handleListEmails(c *fiber.Ctx) error {
	emails, err := s.reg.ListEmails(c.UserContext(), c.QueryBool("active_only"))
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(fiber.Map{"items": emails, "total_count": len(emails)})
}

func (s *Server) handleCreateEmail(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	var in registry.AllowedEmailCreate
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid JSON body")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if !strings.Contains(in.Email, "@") {
		return errorJSON(c, fiber.StatusBadRequest, "a valid email address is required")
	}

	email, err := s.reg.CreateEmail(c.UserContext(), in)
	if err != nil {
		return registryError(c, err)
	}

	s.audit(c, id, "email.create", "allowed email "+email.Email)
	return c.Status(fiber.StatusCreated).JSON(email)
}

func (s *Server) handleGetEmail(c *fiber.Ctx) error {
	email, err := s.reg.GetEmail(c.UserContext(), c.Params("id"))
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(email)
}

func (s *Server) handleUpdateEmail(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	var in registry.AllowedEmailUpdate
	if err := c.BodyParser(&in); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid JSON body")
	}

	email, err := s.reg.UpdateEmail(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return registryError(c, err)
	}

	s.audit(c, id, "email.update", "updated email "+email.Email)
	return c.JSON(email)
}

func (s *Server) handleDeleteEmail(c *fiber.Ctx) error {
	id, err := s.identity(c)
	if err != nil {
		return err
	}

	emailID := c.Params("id")
	if err := s.reg.DeleteEmail(c.UserContext(), emailID); err != nil {
		return registryError(c, err)
	}

	s.audit(c, id, "email.delete", "removed email entry "+emailID)
	return c.SendStatus(fiber.StatusNoContent)
}
