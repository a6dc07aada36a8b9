package access

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid_backend/internal/models"
)

func TestPolicyAllow(t *testing.T) {
	p := NewPolicy()

	owner := uuid.New()
	stranger := uuid.New()

	cases := []struct {
		name     string
		caller   Caller
		action   Action
		resource Resource
		want     error
	}{
		{"admin decides escrow", Caller{ID: uuid.New(), Role: models.RoleAdmin}, ActionDecideEscrow, Resource{}, nil},
		{"client cannot decide escrow", Caller{ID: owner, Role: models.RoleClient}, ActionDecideEscrow, Resource{OwnerID: owner}, ErrDenied},
		{"owning client creates escrow", Caller{ID: owner, Role: models.RoleClient}, ActionCreateEscrow, Resource{OwnerID: owner}, nil},
		{"other client cannot create escrow", Caller{ID: stranger, Role: models.RoleClient}, ActionCreateEscrow, Resource{OwnerID: owner}, ErrDenied},
		{"admin creates escrow on any project", Caller{ID: stranger, Role: models.RoleAdmin}, ActionCreateEscrow, Resource{OwnerID: owner}, nil},
		{"developer cannot create escrow", Caller{ID: owner, Role: models.RoleDeveloper}, ActionCreateEscrow, Resource{OwnerID: owner}, ErrDenied},
		{"user operates own wallet", Caller{ID: owner, Role: models.RoleClient}, ActionOperateOwnWallet, Resource{OwnerID: owner}, nil},
		{"user cannot operate foreign wallet", Caller{ID: stranger, Role: models.RoleDeveloper}, ActionOperateOwnWallet, Resource{OwnerID: owner}, ErrDenied},
		{"only admin cancels withdrawals", Caller{ID: owner, Role: models.RoleClient}, ActionCancelWithdrawal, Resource{OwnerID: owner}, ErrDenied},
		{"unknown action denied", Caller{ID: owner, Role: models.RoleAdmin}, Action("nope"), Resource{}, ErrDenied},
		{"unknown role denied", Caller{ID: owner, Role: models.Role("guest")}, ActionOperateOwnWallet, Resource{OwnerID: owner}, ErrDenied},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.Allow(tc.caller, tc.action, tc.resource)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Allow() = %v, want %v", err, tc.want)
			}
		})
	}
}
