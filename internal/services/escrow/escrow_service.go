package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitegrid/sitegrid_backend/internal/access"
	"github.com/sitegrid/sitegrid_backend/internal/models"
)

var (
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrProjectNotFound    = errors.New("project not found")
	ErrTransferNotFound   = errors.New("transfer not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
)

// Store is the persistence surface for escrow records. Decisions are saved
// conditionally on the record still being pending, so a raced double-decide
// surfaces as models.ErrEscrowNotPending instead of a silent overwrite.
type Store interface {
	GetProject(ctx context.Context, id uuid.UUID) (models.Project, error)
	CreateTransfer(ctx context.Context, t *models.EscrowTransfer) error
	CreateWithdrawal(ctx context.Context, w *models.EscrowWithdrawal) error
	GetTransfer(ctx context.Context, id uuid.UUID) (models.EscrowTransfer, error)
	GetWithdrawal(ctx context.Context, id uuid.UUID) (models.EscrowWithdrawal, error)
	SaveTransferDecision(ctx context.Context, t *models.EscrowTransfer) error
	SaveWithdrawalDecision(ctx context.Context, w *models.EscrowWithdrawal) error
	// clientID scopes the listing to that client's projects; nil lists all.
	ListTransfers(ctx context.Context, clientID *uuid.UUID) ([]models.EscrowTransfer, error)
	ListWithdrawals(ctx context.Context, clientID *uuid.UUID) ([]models.EscrowWithdrawal, error)
	CountTransfers(ctx context.Context, clientID *uuid.UUID, status *models.EscrowStatus) (int64, error)
}

// EscrowService runs the project-scoped approval workflow for moving escrowed
// funds. Creating a record never touches a balance; only the admin decision
// settles it.
type EscrowService struct {
	Store  Store
	Policy *access.Policy
}

func NewEscrowService(store Store, policy *access.Policy) *EscrowService {
	return &EscrowService{Store: store, Policy: policy}
}

// CreateTransfer records a pending transfer request against a project's
// escrow. Allowed for the project's client and for admins.
func (s *EscrowService) CreateTransfer(ctx context.Context, caller access.Caller, projectID uuid.UUID, transferToUserID *uuid.UUID, transferTo string, amount decimal.Decimal) (models.EscrowTransfer, error) {
	if !amount.IsPositive() {
		return models.EscrowTransfer{}, ErrInvalidAmount
	}
	project, err := s.Store.GetProject(ctx, projectID)
	if err != nil {
		return models.EscrowTransfer{}, err
	}
	if err := s.Policy.Allow(caller, access.ActionCreateEscrow, access.Resource{OwnerID: project.ClientID}); err != nil {
		return models.EscrowTransfer{}, err
	}

	t := models.EscrowTransfer{
		ProjectID:        projectID,
		TransferToUserID: transferToUserID,
		TransferTo:       transferTo,
		Amount:           amount,
		Status:           models.EscrowPending,
	}
	if err := s.Store.CreateTransfer(ctx, &t); err != nil {
		return models.EscrowTransfer{}, err
	}
	return t, nil
}

// CreateWithdrawal records a pending bank payout request against a project's
// escrow.
func (s *EscrowService) CreateWithdrawal(ctx context.Context, caller access.Caller, projectID uuid.UUID, bankName, accountNo string, amount decimal.Decimal) (models.EscrowWithdrawal, error) {
	if !amount.IsPositive() {
		return models.EscrowWithdrawal{}, ErrInvalidAmount
	}
	project, err := s.Store.GetProject(ctx, projectID)
	if err != nil {
		return models.EscrowWithdrawal{}, err
	}
	if err := s.Policy.Allow(caller, access.ActionCreateEscrow, access.Resource{OwnerID: project.ClientID}); err != nil {
		return models.EscrowWithdrawal{}, err
	}

	w := models.EscrowWithdrawal{
		ProjectID: projectID,
		BankName:  bankName,
		AccountNo: accountNo,
		Amount:    amount,
		Status:    models.EscrowPending,
	}
	if err := s.Store.CreateWithdrawal(ctx, &w); err != nil {
		return models.EscrowWithdrawal{}, err
	}
	return w, nil
}

// ApproveTransfer moves a pending transfer to approved and stamps the send
// date. Admin only; terminal records fail with models.ErrEscrowNotPending.
func (s *EscrowService) ApproveTransfer(ctx context.Context, caller access.Caller, id uuid.UUID) (models.EscrowTransfer, error) {
	if err := s.Policy.Allow(caller, access.ActionDecideEscrow, access.Resource{}); err != nil {
		return models.EscrowTransfer{}, err
	}
	t, err := s.Store.GetTransfer(ctx, id)
	if err != nil {
		return models.EscrowTransfer{}, err
	}
	if err := t.Approve(time.Now().UTC()); err != nil {
		return models.EscrowTransfer{}, err
	}
	if err := s.Store.SaveTransferDecision(ctx, &t); err != nil {
		return models.EscrowTransfer{}, err
	}
	return t, nil
}

// RejectTransfer moves a pending transfer to rejected. Admin only.
func (s *EscrowService) RejectTransfer(ctx context.Context, caller access.Caller, id uuid.UUID) (models.EscrowTransfer, error) {
	if err := s.Policy.Allow(caller, access.ActionDecideEscrow, access.Resource{}); err != nil {
		return models.EscrowTransfer{}, err
	}
	t, err := s.Store.GetTransfer(ctx, id)
	if err != nil {
		return models.EscrowTransfer{}, err
	}
	if err := t.Reject(); err != nil {
		return models.EscrowTransfer{}, err
	}
	if err := s.Store.SaveTransferDecision(ctx, &t); err != nil {
		return models.EscrowTransfer{}, err
	}
	return t, nil
}

// ApproveWithdrawal moves a pending withdrawal to approved and stamps the
// settlement date. Admin only.
func (s *EscrowService) ApproveWithdrawal(ctx context.Context, caller access.Caller, id uuid.UUID) (models.EscrowWithdrawal, error) {
	if err := s.Policy.Allow(caller, access.ActionDecideEscrow, access.Resource{}); err != nil {
		return models.EscrowWithdrawal{}, err
	}
	w, err := s.Store.GetWithdrawal(ctx, id)
	if err != nil {
		return models.EscrowWithdrawal{}, err
	}
	if err := w.Approve(time.Now().UTC()); err != nil {
		return models.EscrowWithdrawal{}, err
	}
	if err := s.Store.SaveWithdrawalDecision(ctx, &w); err != nil {
		return models.EscrowWithdrawal{}, err
	}
	return w, nil
}

// RejectWithdrawal moves a pending withdrawal to rejected. Admin only.
func (s *EscrowService) RejectWithdrawal(ctx context.Context, caller access.Caller, id uuid.UUID) (models.EscrowWithdrawal, error) {
	if err := s.Policy.Allow(caller, access.ActionDecideEscrow, access.Resource{}); err != nil {
		return models.EscrowWithdrawal{}, err
	}
	w, err := s.Store.GetWithdrawal(ctx, id)
	if err != nil {
		return models.EscrowWithdrawal{}, err
	}
	if err := w.Reject(); err != nil {
		return models.EscrowWithdrawal{}, err
	}
	if err := s.Store.SaveWithdrawalDecision(ctx, &w); err != nil {
		return models.EscrowWithdrawal{}, err
	}
	return w, nil
}

// ListTransfers returns transfers visible to the caller: clients see only
// their own projects, admins see everything.
func (s *EscrowService) ListTransfers(ctx context.Context, caller access.Caller) ([]models.EscrowTransfer, error) {
	return s.Store.ListTransfers(ctx, s.scope(caller))
}

// ListWithdrawals returns withdrawals visible to the caller.
func (s *EscrowService) ListWithdrawals(ctx context.Context, caller access.Caller) ([]models.EscrowWithdrawal, error) {
	return s.Store.ListWithdrawals(ctx, s.scope(caller))
}

// Stats summarizes the caller's escrow transfer pipeline.
type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
}

// GetStats counts total/pending/approved transfers, scoped for clients.
func (s *EscrowService) GetStats(ctx context.Context, caller access.Caller) (Stats, error) {
	scope := s.scope(caller)

	total, err := s.Store.CountTransfers(ctx, scope, nil)
	if err != nil {
		return Stats{}, err
	}
	pending := models.EscrowPending
	pendingCount, err := s.Store.CountTransfers(ctx, scope, &pending)
	if err != nil {
		return Stats{}, err
	}
	approved := models.EscrowApproved
	approvedCount, err := s.Store.CountTransfers(ctx, scope, &approved)
	if err != nil {
		return Stats{}, err
	}

	return Stats{Total: total, Pending: pendingCount, Approved: approvedCount}, nil
}

func (s *EscrowService) scope(caller access.Caller) *uuid.UUID {
	if caller.Role == models.RoleClient {
		id := caller.ID
		return &id
	}
	return nil
}
