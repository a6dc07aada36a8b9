// Package access centralizes the role/ownership checks that used to be
// scattered across individual service methods. Services ask the policy one
// question — may this caller perform this action on this resource — and get
// ErrDenied back before any mutation happens.
package access

import (
	"errors"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid_backend/internal/models"
)

// ErrDenied is returned for every failed capability check.
var ErrDenied = errors.New("access denied")

// Caller identifies the authenticated principal performing an operation.
type Caller struct {
	ID   uuid.UUID
	Role models.Role
}

// Action names a capability. Actions are coarse on purpose: one per mutating
// service operation family, not one per HTTP route.
type Action string

const (
	ActionOperateOwnWallet Action = "wallet:operate"
	ActionCreateEscrow     Action = "escrow:create"
	ActionDecideEscrow     Action = "escrow:decide"
	ActionCancelWithdrawal Action = "wallet:cancel_withdrawal"
	ActionManageProject    Action = "project:manage"
	ActionFileReport       Action = "report:file"
)

// Resource carries the ownership facts a rule may need. OwnerID is the
// client/user the resource belongs to; uuid.Nil means ownership does not
// apply to this action.
type Resource struct {
	OwnerID uuid.UUID
}

type rule struct {
	roles      map[models.Role]bool
	ownerBound map[models.Role]bool // roles that additionally must own the resource
}

// Policy is the capability table injected into the wallet and escrow services.
type Policy struct {
	rules map[Action]rule
}

// NewPolicy builds the default capability table.
func NewPolicy() *Policy {
	return &Policy{rules: map[Action]rule{
		ActionOperateOwnWallet: {
			roles:      map[models.Role]bool{models.RoleClient: true, models.RoleDeveloper: true, models.RoleAdmin: true},
			ownerBound: map[models.Role]bool{models.RoleClient: true, models.RoleDeveloper: true},
		},
		ActionCreateEscrow: {
			roles:      map[models.Role]bool{models.RoleClient: true, models.RoleAdmin: true},
			ownerBound: map[models.Role]bool{models.RoleClient: true},
		},
		ActionDecideEscrow: {
			roles: map[models.Role]bool{models.RoleAdmin: true},
		},
		ActionCancelWithdrawal: {
			roles: map[models.Role]bool{models.RoleAdmin: true},
		},
		ActionManageProject: {
			roles:      map[models.Role]bool{models.RoleClient: true, models.RoleAdmin: true},
			ownerBound: map[models.Role]bool{models.RoleClient: true},
		},
		ActionFileReport: {
			roles:      map[models.Role]bool{models.RoleDeveloper: true, models.RoleAdmin: true},
			ownerBound: map[models.Role]bool{models.RoleDeveloper: true},
		},
	}}
}

// Allow returns nil when the caller may perform action on resource, ErrDenied
// otherwise. Callers with unknown roles or actions are always denied.
func (p *Policy) Allow(caller Caller, action Action, resource Resource) error {
	r, ok := p.rules[action]
	if !ok {
		return ErrDenied
	}
	if !r.roles[caller.Role] {
		return ErrDenied
	}
	if r.ownerBound[caller.Role] && resource.OwnerID != caller.ID {
		return ErrDenied
	}
	return nil
}
