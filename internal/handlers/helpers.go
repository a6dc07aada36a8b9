package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid_backend/internal/access"
	"github.com/sitegrid/sitegrid_backend/internal/models"
	"github.com/sitegrid/sitegrid_backend/internal/services/escrow"
	"github.com/sitegrid/sitegrid_backend/internal/services/wallet"
)

func getUserUUID(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Locals("userId")
	if raw == nil {
		return uuid.Nil, errors.New("missing userId in locals")
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, errors.New("userId is not a string")
	}
	return uuid.Parse(s)
}

// currentCaller builds the access principal from the JWT locals set by the
// middleware chain.
func currentCaller(c *fiber.Ctx) (access.Caller, error) {
	id, err := getUserUUID(c)
	if err != nil {
		return access.Caller{}, err
	}
	role, _ := c.Locals("role").(string)
	return access.Caller{ID: id, Role: models.Role(role)}, nil
}

// serviceError maps the service-layer sentinel errors onto HTTP responses.
// Raw errors never reach the client; unknown ones become a generic 500.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, access.ErrDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Access denied"})
	case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, escrow.ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Amount must be greater than zero"})
	case errors.Is(err, wallet.ErrInsufficientBalance):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Insufficient balance"})
	case errors.Is(err, wallet.ErrTransactionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Transaction not found"})
	case errors.Is(err, escrow.ErrProjectNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Project not found"})
	case errors.Is(err, escrow.ErrTransferNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Transfer not found"})
	case errors.Is(err, escrow.ErrWithdrawalNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Withdrawal not found"})
	case errors.Is(err, models.ErrTrxNotPending):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Transaction already settled"})
	case errors.Is(err, models.ErrEscrowNotPending):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Record already decided"})
	case errors.Is(err, wallet.ErrGatewayUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"success": false, "message": "Payment gateway unavailable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Internal server error"})
	}
}
