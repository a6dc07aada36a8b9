package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sitegrid/sitegrid_backend/internal/models"
	"github.com/sitegrid/sitegrid_backend/internal/realtime"
	"github.com/sitegrid/sitegrid_backend/internal/services/escrow"
)

type EscrowHandler struct {
	DB      *gorm.DB
	Service *escrow.EscrowService
	Hub     *realtime.Hub
}

func NewEscrowHandler(db *gorm.DB, service *escrow.EscrowService, hub *realtime.Hub) *EscrowHandler {
	return &EscrowHandler{DB: db, Service: service, Hub: hub}
}

type CreateTransferReq struct {
	ProjectID        string          `json:"project_id"`
	TransferToUserID *string         `json:"transfer_to_user_id"`
	TransferTo       string          `json:"transfer_to"`
	Amount           decimal.Decimal `json:"amount"`
}

func (h *EscrowHandler) CreateTransfer(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req CreateTransferReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid project ID"})
	}

	var toUserID *uuid.UUID
	if req.TransferToUserID != nil && *req.TransferToUserID != "" {
		id, err := uuid.Parse(*req.TransferToUserID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid recipient ID"})
		}
		toUserID = &id
	}

	if strings.TrimSpace(req.TransferTo) == "" {
		errs := FieldErrors{}
		errs.Add("transfer_to", "Recipient is required")
		return validationFail(c, errs)
	}

	t, err := h.Service.CreateTransfer(c.Context(), caller, projectID, toUserID, req.TransferTo, req.Amount)
	if err != nil {
		log.Println("Error creating escrow transfer:", err)
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": t})
}

type CreateEscrowWithdrawalReq struct {
	ProjectID string          `json:"project_id"`
	BankName  string          `json:"bank_name"`
	AccountNo string          `json:"account_no"`
	Amount    decimal.Decimal `json:"amount"`
}

func (h *EscrowHandler) CreateWithdrawal(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req CreateEscrowWithdrawalReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid project ID"})
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.BankName) == "" {
		errs.Add("bank_name", "Bank name is required")
	}
	if strings.TrimSpace(req.AccountNo) == "" {
		errs.Add("account_no", "Account number is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	w, err := h.Service.CreateWithdrawal(c.Context(), caller, projectID, req.BankName, req.AccountNo, req.Amount)
	if err != nil {
		log.Println("Error creating escrow withdrawal:", err)
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": w})
}

func (h *EscrowHandler) ListTransfers(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	transfers, err := h.Service.ListTransfers(c.Context(), caller)
	if err != nil {
		log.Println("Error listing escrow transfers:", err)
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": transfers})
}

func (h *EscrowHandler) ListWithdrawals(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	withdrawals, err := h.Service.ListWithdrawals(c.Context(), caller)
	if err != nil {
		log.Println("Error listing escrow withdrawals:", err)
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": withdrawals})
}

func (h *EscrowHandler) GetStats(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	stats, err := h.Service.GetStats(c.Context(), caller)
	if err != nil {
		log.Println("Error fetching escrow stats:", err)
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

func (h *EscrowHandler) ApproveTransfer(c *fiber.Ctx) error {
	return h.decideTransfer(c, true)
}

func (h *EscrowHandler) RejectTransfer(c *fiber.Ctx) error {
	return h.decideTransfer(c, false)
}

func (h *EscrowHandler) ApproveWithdrawal(c *fiber.Ctx) error {
	return h.decideWithdrawal(c, true)
}

func (h *EscrowHandler) RejectWithdrawal(c *fiber.Ctx) error {
	return h.decideWithdrawal(c, false)
}

func (h *EscrowHandler) decideTransfer(c *fiber.Ctx, approve bool) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid transfer ID"})
	}

	var t models.EscrowTransfer
	if approve {
		t, err = h.Service.ApproveTransfer(c.Context(), caller, id)
	} else {
		t, err = h.Service.RejectTransfer(c.Context(), caller, id)
	}
	if err != nil {
		log.Println("Error deciding escrow transfer:", err)
		return serviceError(c, err)
	}

	h.notifyDecision(t.ProjectID, "Escrow transfer "+string(t.Status),
		"Transfer of "+t.Amount.StringFixed(2)+" to "+t.TransferTo+" was "+string(t.Status)+".")

	return c.JSON(fiber.Map{"success": true, "data": t})
}

func (h *EscrowHandler) decideWithdrawal(c *fiber.Ctx, approve bool) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid withdrawal ID"})
	}

	var w models.EscrowWithdrawal
	if approve {
		w, err = h.Service.ApproveWithdrawal(c.Context(), caller, id)
	} else {
		w, err = h.Service.RejectWithdrawal(c.Context(), caller, id)
	}
	if err != nil {
		log.Println("Error deciding escrow withdrawal:", err)
		return serviceError(c, err)
	}

	h.notifyDecision(w.ProjectID, "Escrow withdrawal "+string(w.Status),
		"Withdrawal of "+w.Amount.StringFixed(2)+" to "+w.BankName+" "+w.AccountNo+" was "+string(w.Status)+".")

	return c.JSON(fiber.Map{"success": true, "data": w})
}

// notifyDecision tells the project's client about an escrow decision. Failures
// only get logged; the decision itself already committed.
func (h *EscrowHandler) notifyDecision(projectID uuid.UUID, title, body string) {
	var project models.Project
	if err := h.DB.First(&project, "id = ?", projectID).Error; err != nil {
		log.Println("Error loading project for escrow notification:", err)
		return
	}

	notif := models.Notification{
		UserID: project.ClientID,
		Kind:   models.NotificationEscrow,
		Title:  title,
		Body:   body,
	}
	if err := h.DB.Create(&notif).Error; err != nil {
		log.Println("Error creating escrow notification:", err)
		return
	}

	h.Hub.SendToUser(project.ClientID, fiber.Map{
		"type":         "notification",
		"notification": notif,
	})
}
