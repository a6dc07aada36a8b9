package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/sitegrid/sitegrid_backend/internal/access"
	"github.com/sitegrid/sitegrid_backend/internal/models"
	"github.com/sitegrid/sitegrid_backend/internal/services/paystack"
)

// Gateway is the slice of the payment processor the ledger needs. Calls are
// black-box remote operations; the service never retries them itself.
type Gateway interface {
	InitializeCharge(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
	VerifyCharge(ctx context.Context, reference string) (*paystack.VerifyResponse, error)
	ListBanks(ctx context.Context) ([]paystack.Bank, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.AccountResolution, error)
}

// Store owns every balance mutation. There is deliberately no raw
// "set balance" operation: callers get the composite atomic flows below and
// nothing else.
type Store interface {
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, page, limit int) ([]models.WalletTransaction, int64, error)
	CreatePendingDeposit(ctx context.Context, trx *models.WalletTransaction) error
	FindByReference(ctx context.Context, walletID uuid.UUID, reference string) (models.WalletTransaction, error)
	// SettleDeposit claims the pending row and credits the wallet as one
	// indivisible unit. A row that already left pending is returned as-is
	// with no balance effect, so concurrent settlements credit exactly once.
	SettleDeposit(ctx context.Context, trxID uuid.UUID) (models.WalletTransaction, models.Wallet, error)
	FailDeposit(ctx context.Context, trxID uuid.UUID) (models.WalletTransaction, error)
	// Withdraw debits the wallet and records the pending withdrawal in one
	// unit; the debit is conditional on balance >= amount.
	Withdraw(ctx context.Context, walletID uuid.UUID, trx *models.WalletTransaction) (models.Wallet, error)
	// RefundWithdrawal fails the pending withdrawal and credits the amount
	// back in one unit.
	RefundWithdrawal(ctx context.Context, trxID uuid.UUID) (models.WalletTransaction, models.Wallet, error)
	SetWalletPin(ctx context.Context, walletID uuid.UUID, pinHash string) error
}

// WalletService mediates all balance-affecting operations.
type WalletService struct {
	Store   Store
	Gateway Gateway
	Policy  *access.Policy
}

func NewWalletService(store Store, gateway Gateway, policy *access.Policy) *WalletService {
	return &WalletService{Store: store, Gateway: gateway, Policy: policy}
}

// GetOrCreateWallet returns the caller's wallet, creating a zero-balance one
// on first access.
func (s *WalletService) GetOrCreateWallet(ctx context.Context, caller access.Caller, userID uuid.UUID) (models.Wallet, error) {
	if err := s.Policy.Allow(caller, access.ActionOperateOwnWallet, access.Resource{OwnerID: userID}); err != nil {
		return models.Wallet{}, err
	}
	return s.Store.GetOrCreateWallet(ctx, userID)
}

// ListTransactions returns a page of the wallet's ledger history, newest first.
func (s *WalletService) ListTransactions(ctx context.Context, caller access.Caller, userID uuid.UUID, page, limit int) ([]models.WalletTransaction, int64, error) {
	if err := s.Policy.Allow(caller, access.ActionOperateOwnWallet, access.Resource{OwnerID: userID}); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	w, err := s.Store.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return s.Store.ListTransactions(ctx, w.ID, page, limit)
}

// DepositIntent is what the caller needs to complete a deposit on the
// gateway's hosted page.
type DepositIntent struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// InitiateDeposit records a pending deposit and starts a gateway charge. The
// pending row is written before the gateway call so a crash or gateway error
// never loses track of a charge that may have started; the row stays behind
// for later verification.
func (s *WalletService) InitiateDeposit(ctx context.Context, caller access.Caller, userID uuid.UUID, amount decimal.Decimal, email string) (DepositIntent, error) {
	if err := s.Policy.Allow(caller, access.ActionOperateOwnWallet, access.Resource{OwnerID: userID}); err != nil {
		return DepositIntent{}, err
	}
	if !amount.IsPositive() {
		return DepositIntent{}, ErrInvalidAmount
	}

	w, err := s.Store.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return DepositIntent{}, err
	}

	reference := fmt.Sprintf("DEP_%s_%d", userID, time.Now().UnixMilli())

	trx := models.WalletTransaction{
		WalletID:  w.ID,
		Type:      models.WalletTrxDeposit,
		Amount:    amount,
		Status:    models.WalletTrxPending,
		Title:     "Wallet Deposit",
		Reference: &reference,
	}
	if err := s.Store.CreatePendingDeposit(ctx, &trx); err != nil {
		return DepositIntent{}, err
	}

	resp, err := s.Gateway.InitializeCharge(ctx, paystack.InitializeRequest{
		Email:     email,
		Amount:    toKobo(amount),
		Reference: reference,
		Metadata: map[string]string{
			"user_id":   userID.String(),
			"wallet_id": w.ID.String(),
		},
	})
	if err != nil {
		return DepositIntent{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	// The gateway must echo our reference back; a mismatch would leave the
	// pending row unverifiable, so treat it as a gateway fault. The pending
	// row stays behind either way.
	if resp.Data.Reference != reference {
		return DepositIntent{}, fmt.Errorf("%w: reference mismatch (sent %s, got %s)", ErrGatewayUnavailable, reference, resp.Data.Reference)
	}

	return DepositIntent{
		AuthorizationURL: resp.Data.AuthorizationURL,
		AccessCode:       resp.Data.AccessCode,
		Reference:        reference,
	}, nil
}

// VerifyDeposit checks the gateway outcome for a pending deposit and settles
// it. Safe to call any number of times for the same reference: an
// already-completed transaction is returned unchanged, and concurrent calls
// credit the wallet exactly once.
func (s *WalletService) VerifyDeposit(ctx context.Context, caller access.Caller, userID uuid.UUID, reference string) (models.WalletTransaction, models.Wallet, error) {
	if err := s.Policy.Allow(caller, access.ActionOperateOwnWallet, access.Resource{OwnerID: userID}); err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}

	w, err := s.Store.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}

	trx, err := s.Store.FindByReference(ctx, w.ID, reference)
	if err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	if trx.Terminal() {
		return trx, w, nil
	}

	verification, err := s.Gateway.VerifyCharge(ctx, reference)
	if err != nil {
		return models.WalletTransaction{}, models.Wallet{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if verification.Data.Status == "success" {
		return s.Store.SettleDeposit(ctx, trx.ID)
	}

	trx, err = s.Store.FailDeposit(ctx, trx.ID)
	if err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	return trx, w, nil
}

// RequestWithdrawal reserves funds for a payout. The debit happens at request
// time so two concurrent requests can never both spend the same balance; a
// withdrawal an operator later rejects is reversed via CancelWithdrawal.
func (s *WalletService) RequestWithdrawal(ctx context.Context, caller access.Caller, userID uuid.UUID, amount decimal.Decimal, accountNumber, bankCode, bankName string) (models.WalletTransaction, error) {
	if err := s.Policy.Allow(caller, access.ActionOperateOwnWallet, access.Resource{OwnerID: userID}); err != nil {
		return models.WalletTransaction{}, err
	}
	if !amount.IsPositive() {
		return models.WalletTransaction{}, ErrInvalidAmount
	}

	w, err := s.Store.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return models.WalletTransaction{}, err
	}

	subtitle := fmt.Sprintf("%s - %s", bankName, accountNumber)
	trx := models.WalletTransaction{
		WalletID: w.ID,
		Type:     models.WalletTrxWithdrawal,
		Amount:   amount,
		Status:   models.WalletTrxPending,
		Title:    "Withdrawal Request",
		Subtitle: &subtitle,
		Method:   &bankCode,
	}

	if _, err := s.Store.Withdraw(ctx, w.ID, &trx); err != nil {
		return models.WalletTransaction{}, err
	}
	return trx, nil
}

// CancelWithdrawal is the operator-side reversal of a pending withdrawal:
// the transaction moves to failed and the reserved amount is credited back.
func (s *WalletService) CancelWithdrawal(ctx context.Context, caller access.Caller, trxID uuid.UUID) (models.WalletTransaction, models.Wallet, error) {
	if err := s.Policy.Allow(caller, access.ActionCancelWithdrawal, access.Resource{}); err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	return s.Store.RefundWithdrawal(ctx, trxID)
}

// SetPin stores a bcrypt hash of the wallet PIN.
func (s *WalletService) SetPin(ctx context.Context, caller access.Caller, userID uuid.UUID, pin string) error {
	if err := s.Policy.Allow(caller, access.ActionOperateOwnWallet, access.Resource{OwnerID: userID}); err != nil {
		return err
	}
	if len(pin) < 4 {
		return fmt.Errorf("pin must be at least 4 digits")
	}
	w, err := s.Store.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Store.SetWalletPin(ctx, w.ID, string(hash))
}

// CheckPin verifies the wallet PIN against the stored hash.
func (s *WalletService) CheckPin(ctx context.Context, caller access.Caller, userID uuid.UUID, pin string) (bool, error) {
	if err := s.Policy.Allow(caller, access.ActionOperateOwnWallet, access.Resource{OwnerID: userID}); err != nil {
		return false, err
	}
	w, err := s.Store.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return false, err
	}
	if w.PinHash == nil {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(*w.PinHash), []byte(pin)) == nil, nil
}

// GetBanks proxies the gateway bank list.
func (s *WalletService) GetBanks(ctx context.Context) ([]paystack.Bank, error) {
	banks, err := s.Gateway.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return banks, nil
}

// VerifyAccount resolves the holder name for a bank account via the gateway.
func (s *WalletService) VerifyAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.AccountResolution, error) {
	res, err := s.Gateway.ResolveAccount(ctx, accountNumber, bankCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return res, nil
}

func toKobo(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
