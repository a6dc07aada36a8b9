package escrow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitegrid/sitegrid_backend/internal/access"
	"github.com/sitegrid/sitegrid_backend/internal/models"
)

func newTestService() (*EscrowService, *MemoryStore) {
	store := NewMemoryStore()
	return NewEscrowService(store, access.NewPolicy()), store
}

func seedProject(store *MemoryStore, clientID uuid.UUID) models.Project {
	p := models.Project{ID: uuid.New(), Name: "Duplex at Lekki", ClientID: clientID, Status: models.ProjectActive}
	store.AddProject(p)
	return p
}

func TestApproveTransferThenRejectFailsNotPending(t *testing.T) {
	// Scenario: transfer created pending for 20000; admin approves; a later
	// reject on the same id must fail and leave the record approved.
	svc, store := newTestService()
	ctx := context.Background()

	client := access.Caller{ID: uuid.New(), Role: models.RoleClient}
	admin := access.Caller{ID: uuid.New(), Role: models.RoleAdmin}
	project := seedProject(store, client.ID)

	created, err := svc.CreateTransfer(ctx, client, project.ID, nil, "Obi & Sons Ltd", decimal.NewFromInt(20000))
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	if created.Status != models.EscrowPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}

	approved, err := svc.ApproveTransfer(ctx, admin, created.ID)
	if err != nil {
		t.Fatalf("approve transfer: %v", err)
	}
	if approved.Status != models.EscrowApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.DateSent == nil {
		t.Fatal("approval must stamp date_sent")
	}

	if _, err := svc.RejectTransfer(ctx, admin, created.ID); !errors.Is(err, models.ErrEscrowNotPending) {
		t.Fatalf("expected ErrEscrowNotPending, got %v", err)
	}

	// Record unchanged after the failed reject.
	got, err := svc.Store.GetTransfer(ctx, created.ID)
	if err != nil {
		t.Fatalf("get transfer: %v", err)
	}
	if got.Status != models.EscrowApproved || got.DateSent == nil {
		t.Fatalf("record mutated by failed reject: %+v", got)
	}
}

func TestRejectTransferIsTerminal(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	client := access.Caller{ID: uuid.New(), Role: models.RoleClient}
	admin := access.Caller{ID: uuid.New(), Role: models.RoleAdmin}
	project := seedProject(store, client.ID)

	created, err := svc.CreateTransfer(ctx, client, project.ID, nil, "Obi & Sons Ltd", decimal.NewFromInt(5000))
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	rejected, err := svc.RejectTransfer(ctx, admin, created.ID)
	if err != nil {
		t.Fatalf("reject transfer: %v", err)
	}
	if rejected.Status != models.EscrowRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}

	if _, err := svc.ApproveTransfer(ctx, admin, created.ID); !errors.Is(err, models.ErrEscrowNotPending) {
		t.Fatalf("expected ErrEscrowNotPending, got %v", err)
	}
}

func TestWithdrawalDecisionLifecycle(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	client := access.Caller{ID: uuid.New(), Role: models.RoleClient}
	admin := access.Caller{ID: uuid.New(), Role: models.RoleAdmin}
	project := seedProject(store, client.ID)

	created, err := svc.CreateWithdrawal(ctx, client, project.ID, "GTBank", "0123456789", decimal.NewFromInt(8000))
	if err != nil {
		t.Fatalf("create withdrawal: %v", err)
	}

	approved, err := svc.ApproveWithdrawal(ctx, admin, created.ID)
	if err != nil {
		t.Fatalf("approve withdrawal: %v", err)
	}
	if approved.Status != models.EscrowApproved || approved.Date == nil {
		t.Fatalf("unexpected approval state: %+v", approved)
	}

	if _, err := svc.RejectWithdrawal(ctx, admin, created.ID); !errors.Is(err, models.ErrEscrowNotPending) {
		t.Fatalf("expected ErrEscrowNotPending, got %v", err)
	}
}

func TestOnlyAdminsDecide(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	client := access.Caller{ID: uuid.New(), Role: models.RoleClient}
	project := seedProject(store, client.ID)

	created, err := svc.CreateTransfer(ctx, client, project.ID, nil, "Obi & Sons Ltd", decimal.NewFromInt(5000))
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	if _, err := svc.ApproveTransfer(ctx, client, created.ID); !errors.Is(err, access.ErrDenied) {
		t.Fatalf("expected access.ErrDenied, got %v", err)
	}
	if _, err := svc.RejectTransfer(ctx, client, created.ID); !errors.Is(err, access.ErrDenied) {
		t.Fatalf("expected access.ErrDenied, got %v", err)
	}
}

func TestCreateRequiresOwnershipOrAdmin(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	owner := access.Caller{ID: uuid.New(), Role: models.RoleClient}
	other := access.Caller{ID: uuid.New(), Role: models.RoleClient}
	admin := access.Caller{ID: uuid.New(), Role: models.RoleAdmin}
	developer := access.Caller{ID: uuid.New(), Role: models.RoleDeveloper}
	project := seedProject(store, owner.ID)

	if _, err := svc.CreateTransfer(ctx, other, project.ID, nil, "X", decimal.NewFromInt(100)); !errors.Is(err, access.ErrDenied) {
		t.Fatalf("foreign client: expected access.ErrDenied, got %v", err)
	}
	if _, err := svc.CreateTransfer(ctx, developer, project.ID, nil, "X", decimal.NewFromInt(100)); !errors.Is(err, access.ErrDenied) {
		t.Fatalf("developer: expected access.ErrDenied, got %v", err)
	}
	if _, err := svc.CreateTransfer(ctx, admin, project.ID, nil, "X", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if _, err := svc.CreateWithdrawal(ctx, owner, project.ID, "GTBank", "0123456789", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("owner: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	client := access.Caller{ID: uuid.New(), Role: models.RoleClient}
	project := seedProject(store, client.ID)

	if _, err := svc.CreateTransfer(ctx, client, project.ID, nil, "X", decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.CreateTransfer(ctx, client, uuid.New(), nil, "X", decimal.NewFromInt(100)); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestStatsAreScopedForClients(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	clientA := access.Caller{ID: uuid.New(), Role: models.RoleClient}
	clientB := access.Caller{ID: uuid.New(), Role: models.RoleClient}
	admin := access.Caller{ID: uuid.New(), Role: models.RoleAdmin}
	projectA := seedProject(store, clientA.ID)
	projectB := seedProject(store, clientB.ID)

	t1, _ := svc.CreateTransfer(ctx, clientA, projectA.ID, nil, "X", decimal.NewFromInt(100))
	svc.CreateTransfer(ctx, clientA, projectA.ID, nil, "Y", decimal.NewFromInt(200))
	svc.CreateTransfer(ctx, clientB, projectB.ID, nil, "Z", decimal.NewFromInt(300))

	if _, err := svc.ApproveTransfer(ctx, admin, t1.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	statsA, err := svc.GetStats(ctx, clientA)
	if err != nil {
		t.Fatalf("stats A: %v", err)
	}
	if statsA.Total != 2 || statsA.Pending != 1 || statsA.Approved != 1 {
		t.Fatalf("unexpected stats for client A: %+v", statsA)
	}

	statsAdmin, err := svc.GetStats(ctx, admin)
	if err != nil {
		t.Fatalf("stats admin: %v", err)
	}
	if statsAdmin.Total != 3 {
		t.Fatalf("admin must see all transfers, got %+v", statsAdmin)
	}

	listA, err := svc.ListTransfers(ctx, clientA)
	if err != nil {
		t.Fatalf("list A: %v", err)
	}
	if len(listA) != 2 {
		t.Fatalf("client A must see 2 transfers, got %d", len(listA))
	}
	listAdmin, _ := svc.ListTransfers(ctx, admin)
	if len(listAdmin) != 3 {
		t.Fatalf("admin must see 3 transfers, got %d", len(listAdmin))
	}
}
