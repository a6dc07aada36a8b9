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
	"github.com/sitegrid/sitegrid_backend/internal/services/wallet"
)

type WalletHandler struct {
	DB      *gorm.DB
	Service *wallet.WalletService
	Hub     *realtime.Hub
}

func NewWalletHandler(db *gorm.DB, service *wallet.WalletService, hub *realtime.Hub) *WalletHandler {
	return &WalletHandler{DB: db, Service: service, Hub: hub}
}

// targetUserID resolves which wallet the request operates on. Defaults to the
// caller; an explicit ?user_id= is passed through to the service, where the
// policy decides whether the caller may touch someone else's wallet.
func targetUserID(c *fiber.Ctx, callerID uuid.UUID) (uuid.UUID, error) {
	q := strings.TrimSpace(c.Query("user_id"))
	if q == "" {
		return callerID, nil
	}
	return uuid.Parse(q)
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}
	userID, err := targetUserID(c, caller.ID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid user ID"})
	}

	w, err := h.Service.GetOrCreateWallet(c.Context(), caller, userID)
	if err != nil {
		log.Println("Error fetching wallet:", err)
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":       w.ID,
			"user_id":  w.UserID,
			"balance":  w.Balance,
			"verified": w.Verified,
			"has_pin":  w.PinHash != nil,
		},
	})
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}
	userID, err := targetUserID(c, caller.ID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid user ID"})
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	trxs, total, err := h.Service.ListTransactions(c.Context(), caller, userID, page, limit)
	if err != nil {
		log.Println("Error fetching transactions:", err)
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    trxs,
		"meta": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

type DepositReq struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *WalletHandler) InitiateDeposit(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req DepositReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", caller.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "User not found"})
	}

	intent, err := h.Service.InitiateDeposit(c.Context(), caller, caller.ID, req.Amount, user.Email)
	if err != nil {
		log.Println("Error initiating deposit:", err)
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": intent})
}

func (h *WalletHandler) VerifyDeposit(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	reference := c.Params("reference")
	if reference == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Reference is required"})
	}

	trx, w, err := h.Service.VerifyDeposit(c.Context(), caller, caller.ID, reference)
	if err != nil {
		log.Println("Error verifying deposit:", err)
		return serviceError(c, err)
	}

	if trx.Status == models.WalletTrxCompleted {
		notif := models.Notification{
			UserID: caller.ID,
			Kind:   models.NotificationDeposit,
			Title:  "Deposit settled",
			Body:   "Your wallet deposit of " + trx.Amount.StringFixed(2) + " has been credited.",
		}
		if err := h.DB.Create(&notif).Error; err == nil {
			h.Hub.SendToUser(caller.ID, fiber.Map{
				"type":         "notification",
				"notification": notif,
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"transaction": trx,
			"balance":     w.Balance,
		},
	})
}

type WithdrawReq struct {
	Amount        decimal.Decimal `json:"amount"`
	AccountNumber string          `json:"account_number"`
	BankCode      string          `json:"bank_code"`
	BankName      string          `json:"bank_name"`
	Pin           string          `json:"pin"`
}

func (h *WalletHandler) RequestWithdrawal(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req WithdrawReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.AccountNumber) == "" {
		errs.Add("account_number", "Account number is required")
	}
	if strings.TrimSpace(req.BankCode) == "" {
		errs.Add("bank_code", "Bank code is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	if req.Pin != "" {
		ok, err := h.Service.CheckPin(c.Context(), caller, caller.ID, req.Pin)
		if err != nil {
			return serviceError(c, err)
		}
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Wrong PIN"})
		}
	}

	trx, err := h.Service.RequestWithdrawal(c.Context(), caller, caller.ID, req.Amount, req.AccountNumber, req.BankCode, req.BankName)
	if err != nil {
		log.Println("Error requesting withdrawal:", err)
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": trx})
}

// CancelWithdrawal reverses a pending withdrawal: the reserved amount goes
// back to the wallet. Admin only.
func (h *WalletHandler) CancelWithdrawal(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	trxID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid transaction ID"})
	}

	trx, w, err := h.Service.CancelWithdrawal(c.Context(), caller, trxID)
	if err != nil {
		log.Println("Error cancelling withdrawal:", err)
		return serviceError(c, err)
	}

	h.Hub.SendToUser(w.UserID, fiber.Map{
		"type":        "withdrawal_cancelled",
		"transaction": trx,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"transaction": trx,
			"balance":     w.Balance,
		},
	})
}

func (h *WalletHandler) GetBanks(c *fiber.Ctx) error {
	banks, err := h.Service.GetBanks(c.Context())
	if err != nil {
		log.Println("Error fetching banks:", err)
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": banks})
}

func (h *WalletHandler) VerifyAccount(c *fiber.Ctx) error {
	accountNumber := strings.TrimSpace(c.Query("account_number"))
	bankCode := strings.TrimSpace(c.Query("bank_code"))
	if accountNumber == "" || bankCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "account_number and bank_code are required"})
	}

	res, err := h.Service.VerifyAccount(c.Context(), accountNumber, bankCode)
	if err != nil {
		log.Println("Error resolving account:", err)
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": res})
}

type SetPinReq struct {
	Pin string `json:"pin"`
}

func (h *WalletHandler) SetPin(c *fiber.Ctx) error {
	caller, err := currentCaller(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req SetPinReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}
	if len(req.Pin) < 4 {
		errs := FieldErrors{}
		errs.Add("pin", "PIN must be at least 4 digits")
		return validationFail(c, errs)
	}

	if err := h.Service.SetPin(c.Context(), caller, caller.ID, req.Pin); err != nil {
		log.Println("Error setting wallet PIN:", err)
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "PIN saved"})
}

type AddBankAccountReq struct {
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	IsDefault     bool   `json:"is_default"`
}

// AddBankAccount name-checks the account against the gateway before saving it
// as a payout destination.
func (h *WalletHandler) AddBankAccount(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var req AddBankAccountReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request"})
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.BankName) == "" {
		errs.Add("bank_name", "Bank name is required")
	}
	if strings.TrimSpace(req.BankCode) == "" {
		errs.Add("bank_code", "Bank code is required")
	}
	if strings.TrimSpace(req.AccountNumber) == "" {
		errs.Add("account_number", "Account number is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	res, err := h.Service.VerifyAccount(c.Context(), req.AccountNumber, req.BankCode)
	if err != nil {
		log.Println("Error resolving account for bank account:", err)
		return serviceError(c, err)
	}

	acct := models.BankAccount{
		UserID:        userUUID,
		BankName:      req.BankName,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountName:   res.AccountName,
		IsDefault:     req.IsDefault,
	}

	if req.IsDefault {
		_ = h.DB.Model(&models.BankAccount{}).
			Where("user_id = ?", userUUID).
			Update("is_default", false).Error
	}

	if err := h.DB.Create(&acct).Error; err != nil {
		log.Println("Error saving bank account:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to save bank account"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": acct})
}

func (h *WalletHandler) ListBankAccounts(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	var accts []models.BankAccount
	if err := h.DB.
		Where("user_id = ?", userUUID).
		Order("is_default DESC, created_at DESC").
		Find(&accts).Error; err != nil {
		log.Println("Error fetching bank accounts:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to fetch bank accounts"})
	}

	return c.JSON(fiber.Map{"success": true, "data": accts})
}

func (h *WalletHandler) DeleteBankAccount(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid bank account ID"})
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, userUUID).Delete(&models.BankAccount{})
	if res.Error != nil {
		log.Println("Error deleting bank account:", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to delete bank account"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Bank account not found"})
	}

	return c.JSON(fiber.Map{"success": true})
}
