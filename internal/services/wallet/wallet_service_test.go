package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitegrid/sitegrid_backend/internal/access"
	"github.com/sitegrid/sitegrid_backend/internal/models"
	"github.com/sitegrid/sitegrid_backend/internal/services/paystack"
)

// stubGateway simulates the payment processor.
type stubGateway struct {
	initErr      error
	verifyErr    error
	verifyStatus string // "success" or "failed"
	echoRef      string // overrides the reference echoed on initialize
}

func (g *stubGateway) InitializeCharge(_ context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error) {
	if g.initErr != nil {
		return nil, g.initErr
	}
	resp := &paystack.InitializeResponse{Status: true}
	resp.Data.AuthorizationURL = "https://checkout.paystack.com/" + req.Reference
	resp.Data.AccessCode = "ac_" + req.Reference
	resp.Data.Reference = req.Reference
	if g.echoRef != "" {
		resp.Data.Reference = g.echoRef
	}
	return resp, nil
}

func (g *stubGateway) VerifyCharge(_ context.Context, reference string) (*paystack.VerifyResponse, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	resp := &paystack.VerifyResponse{Status: true}
	resp.Data.Status = g.verifyStatus
	resp.Data.Reference = reference
	return resp, nil
}

func (g *stubGateway) ListBanks(_ context.Context) ([]paystack.Bank, error) {
	return []paystack.Bank{{Name: "Test Bank", Code: "058"}}, nil
}

func (g *stubGateway) ResolveAccount(_ context.Context, accountNumber, _ string) (*paystack.AccountResolution, error) {
	return &paystack.AccountResolution{AccountNumber: accountNumber, AccountName: "ADA OBI"}, nil
}

func newTestService(gw *stubGateway) (*WalletService, *MemoryStore) {
	store := NewMemoryStore()
	return NewWalletService(store, gw, access.NewPolicy()), store
}

func asCaller(id uuid.UUID, role models.Role) access.Caller {
	return access.Caller{ID: id, Role: role}
}

func mustDeposit(t *testing.T, svc *WalletService, caller access.Caller, amount int64) (string, models.Wallet) {
	t.Helper()
	ctx := context.Background()
	intent, err := svc.InitiateDeposit(ctx, caller, caller.ID, decimal.NewFromInt(amount), "user@example.com")
	if err != nil {
		t.Fatalf("initiate deposit: %v", err)
	}
	trx, w, err := svc.VerifyDeposit(ctx, caller, caller.ID, intent.Reference)
	if err != nil {
		t.Fatalf("verify deposit: %v", err)
	}
	if trx.Status != models.WalletTrxCompleted {
		t.Fatalf("expected completed deposit, got %s", trx.Status)
	}
	return intent.Reference, w
}

func TestGetOrCreateWalletIsLazy(t *testing.T) {
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)

	w, err := svc.GetOrCreateWallet(context.Background(), caller, caller.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", w.Balance)
	}

	again, err := svc.GetOrCreateWallet(context.Background(), caller, caller.ID)
	if err != nil {
		t.Fatalf("get wallet again: %v", err)
	}
	if again.ID != w.ID {
		t.Fatalf("expected same wallet, got %s and %s", w.ID, again.ID)
	}
}

func TestDepositLifecycle(t *testing.T) {
	// Scenario: empty wallet, deposit 5000, gateway reports success.
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)
	ctx := context.Background()

	intent, err := svc.InitiateDeposit(ctx, caller, caller.ID, decimal.NewFromInt(5000), "user@example.com")
	if err != nil {
		t.Fatalf("initiate deposit: %v", err)
	}
	if intent.Reference == "" || intent.AuthorizationURL == "" {
		t.Fatalf("incomplete deposit intent: %+v", intent)
	}

	w, _ := svc.GetOrCreateWallet(ctx, caller, caller.ID)
	trxs, total, err := svc.ListTransactions(ctx, caller, caller.ID, 1, 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if total != 1 || trxs[0].Status != models.WalletTrxPending {
		t.Fatalf("expected one pending transaction before verification, got %d (%+v)", total, trxs)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("balance must stay zero until verification, got %s", w.Balance)
	}

	trx, w, err := svc.VerifyDeposit(ctx, caller, caller.ID, intent.Reference)
	if err != nil {
		t.Fatalf("verify deposit: %v", err)
	}
	if trx.Status != models.WalletTrxCompleted {
		t.Fatalf("expected completed, got %s", trx.Status)
	}
	if !w.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected balance 5000, got %s", w.Balance)
	}
}

func TestVerifyDepositIsIdempotent(t *testing.T) {
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)
	ctx := context.Background()

	ref, _ := mustDeposit(t, svc, caller, 5000)

	trx, w, err := svc.VerifyDeposit(ctx, caller, caller.ID, ref)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if trx.Status != models.WalletTrxCompleted {
		t.Fatalf("expected completed, got %s", trx.Status)
	}
	if !w.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("balance credited more than once: %s", w.Balance)
	}
}

func TestStoreSettleAndFailHoldTerminalStatus(t *testing.T) {
	// Settle then fail the same row directly against the store: the model
	// transition guards must keep the completed status and the balance.
	store := NewMemoryStore()
	ctx := context.Background()

	w, err := store.GetOrCreateWallet(ctx, uuid.New())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	ref := "DEP_guard_1"
	trx := models.WalletTransaction{
		WalletID:  w.ID,
		Type:      models.WalletTrxDeposit,
		Amount:    decimal.NewFromInt(5000),
		Status:    models.WalletTrxPending,
		Title:     "Wallet Deposit",
		Reference: &ref,
	}
	if err := store.CreatePendingDeposit(ctx, &trx); err != nil {
		t.Fatalf("create pending deposit: %v", err)
	}

	settled, w, err := store.SettleDeposit(ctx, trx.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != models.WalletTrxCompleted || !w.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("settle outcome: status %s, balance %s", settled.Status, w.Balance)
	}

	failed, err := store.FailDeposit(ctx, trx.ID)
	if err != nil {
		t.Fatalf("fail after settle: %v", err)
	}
	if failed.Status != models.WalletTrxCompleted {
		t.Fatalf("completed row flipped to %s", failed.Status)
	}

	again, w, err := store.SettleDeposit(ctx, trx.ID)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if again.Status != models.WalletTrxCompleted || !w.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("second settle outcome: status %s, balance %s", again.Status, w.Balance)
	}
}

func TestVerifyDepositConcurrentSingleCredit(t *testing.T) {
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)
	ctx := context.Background()

	intent, err := svc.InitiateDeposit(ctx, caller, caller.ID, decimal.NewFromInt(2500), "user@example.com")
	if err != nil {
		t.Fatalf("initiate deposit: %v", err)
	}

	const n = 25
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, _, err := svc.VerifyDeposit(ctx, caller, caller.ID, intent.Reference); err != nil {
				t.Errorf("concurrent verify: %v", err)
			}
		}()
	}
	wg.Wait()

	w, _ := svc.GetOrCreateWallet(ctx, caller, caller.ID)
	if !w.Balance.Equal(decimal.NewFromInt(2500)) {
		t.Fatalf("expected exactly one credit of 2500, got balance %s", w.Balance)
	}
}

func TestVerifyDepositFailureOutcome(t *testing.T) {
	gw := &stubGateway{verifyStatus: "failed"}
	svc, _ := newTestService(gw)
	caller := asCaller(uuid.New(), models.RoleClient)
	ctx := context.Background()

	intent, err := svc.InitiateDeposit(ctx, caller, caller.ID, decimal.NewFromInt(1000), "user@example.com")
	if err != nil {
		t.Fatalf("initiate deposit: %v", err)
	}

	trx, w, err := svc.VerifyDeposit(ctx, caller, caller.ID, intent.Reference)
	if err != nil {
		t.Fatalf("verify deposit: %v", err)
	}
	if trx.Status != models.WalletTrxFailed {
		t.Fatalf("expected failed, got %s", trx.Status)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("failed deposit must not credit, balance %s", w.Balance)
	}
}

func TestVerifyDepositUnknownReference(t *testing.T) {
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)

	_, _, err := svc.VerifyDeposit(context.Background(), caller, caller.ID, "DEP_nope")
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestInitiateDepositGatewayDownKeepsPendingRow(t *testing.T) {
	gw := &stubGateway{initErr: errors.New("connect timeout"), verifyStatus: "success"}
	svc, _ := newTestService(gw)
	caller := asCaller(uuid.New(), models.RoleClient)
	ctx := context.Background()

	_, err := svc.InitiateDeposit(ctx, caller, caller.ID, decimal.NewFromInt(700), "user@example.com")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}

	// The pending row must survive for reconciliation.
	_, total, err := svc.ListTransactions(ctx, caller, caller.ID, 1, 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected the pending deposit to remain, got %d rows", total)
	}
}

func TestInitiateDepositRejectsMismatchedGatewayReference(t *testing.T) {
	gw := &stubGateway{echoRef: "DEP_somebody_else", verifyStatus: "success"}
	svc, _ := newTestService(gw)
	caller := asCaller(uuid.New(), models.RoleClient)
	ctx := context.Background()

	_, err := svc.InitiateDeposit(ctx, caller, caller.ID, decimal.NewFromInt(900), "user@example.com")
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable on reference mismatch, got %v", err)
	}

	// The locally referenced pending row stays for reconciliation.
	_, total, err := svc.ListTransactions(ctx, caller, caller.ID, 1, 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected the pending deposit to remain, got %d rows", total)
	}
}

func TestInitiateDepositRejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)

	for _, amount := range []int64{0, -100} {
		_, err := svc.InitiateDeposit(context.Background(), caller, caller.ID, decimal.NewFromInt(amount), "user@example.com")
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestRequestWithdrawalInsufficientBalance(t *testing.T) {
	// Scenario: balance 10000, request 15000.
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)
	ctx := context.Background()

	mustDeposit(t, svc, caller, 10000)

	_, err := svc.RequestWithdrawal(ctx, caller, caller.ID, decimal.NewFromInt(15000), "0123456789", "058", "GTBank")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	w, _ := svc.GetOrCreateWallet(ctx, caller, caller.ID)
	if !w.Balance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("balance must be unchanged, got %s", w.Balance)
	}
	_, total, _ := svc.ListTransactions(ctx, caller, caller.ID, 1, 10)
	if total != 1 {
		t.Fatalf("rejected withdrawal must not leave a record, got %d rows", total)
	}
}

func TestRequestWithdrawalDebitsAtRequestTime(t *testing.T) {
	// Scenario: balance 10000, request 4000 -> balance 6000, pending record.
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)
	ctx := context.Background()

	mustDeposit(t, svc, caller, 10000)

	trx, err := svc.RequestWithdrawal(ctx, caller, caller.ID, decimal.NewFromInt(4000), "0123456789", "058", "GTBank")
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}
	if trx.Status != models.WalletTrxPending || trx.Type != models.WalletTrxWithdrawal {
		t.Fatalf("unexpected transaction: %+v", trx)
	}
	if trx.Subtitle == nil || *trx.Subtitle != "GTBank - 0123456789" {
		t.Fatalf("destination not recorded: %+v", trx.Subtitle)
	}

	w, _ := svc.GetOrCreateWallet(ctx, caller, caller.ID)
	if !w.Balance.Equal(decimal.NewFromInt(6000)) {
		t.Fatalf("expected balance 6000, got %s", w.Balance)
	}
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)
	ctx := context.Background()

	mustDeposit(t, svc, caller, 5000)

	// 10 concurrent requests of 1000 against 5000: exactly 5 can win.
	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.RequestWithdrawal(ctx, caller, caller.ID, decimal.NewFromInt(1000), "0123456789", "058", "GTBank")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected exactly 5 successful withdrawals, got %d", succeeded)
	}
	w, _ := svc.GetOrCreateWallet(ctx, caller, caller.ID)
	if !w.Balance.IsZero() {
		t.Fatalf("expected balance 0, got %s", w.Balance)
	}
}

func TestCancelWithdrawalCreditsBack(t *testing.T) {
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)
	admin := asCaller(uuid.New(), models.RoleAdmin)
	ctx := context.Background()

	mustDeposit(t, svc, caller, 10000)
	trx, err := svc.RequestWithdrawal(ctx, caller, caller.ID, decimal.NewFromInt(4000), "0123456789", "058", "GTBank")
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}

	refunded, w, err := svc.CancelWithdrawal(ctx, admin, trx.ID)
	if err != nil {
		t.Fatalf("cancel withdrawal: %v", err)
	}
	if refunded.Status != models.WalletTrxFailed {
		t.Fatalf("expected failed, got %s", refunded.Status)
	}
	if !w.Balance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected balance restored to 10000, got %s", w.Balance)
	}

	// Second cancel must not double-credit.
	if _, _, err := svc.CancelWithdrawal(ctx, admin, trx.ID); !errors.Is(err, models.ErrTrxNotPending) {
		t.Fatalf("expected ErrTrxNotPending, got %v", err)
	}

	// Non-admins cannot cancel.
	if _, _, err := svc.CancelWithdrawal(ctx, caller, trx.ID); !errors.Is(err, access.ErrDenied) {
		t.Fatalf("expected access.ErrDenied, got %v", err)
	}
}

func TestWalletAccessIsOwnerBound(t *testing.T) {
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	owner := asCaller(uuid.New(), models.RoleClient)
	other := asCaller(uuid.New(), models.RoleDeveloper)
	admin := asCaller(uuid.New(), models.RoleAdmin)
	ctx := context.Background()

	if _, err := svc.GetOrCreateWallet(ctx, other, owner.ID); !errors.Is(err, access.ErrDenied) {
		t.Fatalf("expected access.ErrDenied, got %v", err)
	}
	if _, err := svc.GetOrCreateWallet(ctx, admin, owner.ID); err != nil {
		t.Fatalf("admin should read any wallet: %v", err)
	}
}

func TestSetAndCheckPin(t *testing.T) {
	svc, _ := newTestService(&stubGateway{verifyStatus: "success"})
	caller := asCaller(uuid.New(), models.RoleClient)
	ctx := context.Background()

	if err := svc.SetPin(ctx, caller, caller.ID, "4921"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	ok, err := svc.CheckPin(ctx, caller, caller.ID, "4921")
	if err != nil || !ok {
		t.Fatalf("expected pin to verify, ok=%v err=%v", ok, err)
	}
	ok, err = svc.CheckPin(ctx, caller, caller.ID, "0000")
	if err != nil || ok {
		t.Fatalf("expected wrong pin to fail, ok=%v err=%v", ok, err)
	}
}
