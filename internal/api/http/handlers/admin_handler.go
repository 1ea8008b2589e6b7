package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/dto"
	"github.com/spec-kit/helpdesk-core/internal/service"
	"github.com/spec-kit/helpdesk-core/pkg/util/errorutil"
)

// AdminHandler exposes administrative bulk operations.
type AdminHandler struct {
	service *service.TicketService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(ticketService *service.TicketService) *AdminHandler {
	return &AdminHandler{service: ticketService}
}

// Recategorize POST /admin/recategorize. Moves every ticket matching the
// predicate into the named category in a single statement.
func (h *AdminHandler) Recategorize(c *fiber.Ctx) error {
	var req dto.RecategorizeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	updated, err := h.service.BulkRecategorize(c.UserContext(), service.RecategorizeInput{
		Status:      req.Status,
		Category:    req.Category,
		NewCategory: req.NewCategory,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RecategorizeResponse{Updated: updated}})
}
