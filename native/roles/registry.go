// Package roles is the permission registry consulted by the sale engines.
// It tracks one super admin plus any number of admins and controllers.
package roles

import (
	"errors"

	"launchpad/core/types"
)

const (
	RoleSuperAdmin = "launchpad/super-admin"
	RoleAdmin      = "launchpad/admin"
	RoleController = "launchpad/controller"
)

var (
	ErrNotSuperAdmin     = errors.New("Caller is not the super admin")
	ErrNotAdmin          = errors.New("Caller is not the admin")
	ErrNotController     = errors.New("Caller is not the controller")
	ErrInvalidAccount    = errors.New("Invalid account")
	ErrSuperAdminMissing = errors.New("roles: super admin not configured")
)

type registryState interface {
	SetRole(role string, addr [20]byte) error
	RemoveRole(role string, addr [20]byte) error
	HasRole(role string, addr [20]byte) bool
	RoleMembers(role string) ([][20]byte, error)
}

// Registry answers permission checks against role membership stored in state.
type Registry struct {
	state registryState
}

// NewRegistry binds a registry to state.
func NewRegistry(state registryState) *Registry {
	return &Registry{state: state}
}

// Bootstrap installs the initial super admin. It is a no-op when one is
// already configured.
func (r *Registry) Bootstrap(superAdmin [20]byte) error {
	if types.IsZeroAddress(superAdmin) {
		return ErrInvalidAccount
	}
	members, err := r.state.RoleMembers(RoleSuperAdmin)
	if err != nil {
		return err
	}
	if len(members) > 0 {
		return nil
	}
	return r.state.SetRole(RoleSuperAdmin, superAdmin)
}

// SuperAdmin returns the configured super admin.
func (r *Registry) SuperAdmin() ([20]byte, error) {
	members, err := r.state.RoleMembers(RoleSuperAdmin)
	if err != nil {
		return [20]byte{}, err
	}
	if len(members) == 0 {
		return [20]byte{}, ErrSuperAdminMissing
	}
	return members[0], nil
}

func (r *Registry) IsSuperAdmin(addr [20]byte) bool {
	return r != nil && r.state.HasRole(RoleSuperAdmin, addr)
}

func (r *Registry) IsAdmin(addr [20]byte) bool {
	return r != nil && r.state.HasRole(RoleAdmin, addr)
}

func (r *Registry) IsController(addr [20]byte) bool {
	return r != nil && r.state.HasRole(RoleController, addr)
}

func (r *Registry) RequireSuperAdmin(caller [20]byte) error {
	if !r.IsSuperAdmin(caller) {
		return ErrNotSuperAdmin
	}
	return nil
}

func (r *Registry) RequireAdmin(caller [20]byte) error {
	if !r.IsAdmin(caller) {
		return ErrNotAdmin
	}
	return nil
}

// RequireAdminOrSuperAdmin accepts either role and reports ErrNotAdmin
// otherwise.
func (r *Registry) RequireAdminOrSuperAdmin(caller [20]byte) error {
	if r.IsAdmin(caller) || r.IsSuperAdmin(caller) {
		return nil
	}
	return ErrNotAdmin
}

func (r *Registry) RequireController(caller [20]byte) error {
	if !r.IsController(caller) {
		return ErrNotController
	}
	return nil
}

// SetAdmin grants or revokes the admin role. Super admin only.
func (r *Registry) SetAdmin(caller, account [20]byte, allow bool) error {
	return r.setRole(caller, RoleAdmin, account, allow)
}

// SetController grants or revokes the controller role. Super admin only.
func (r *Registry) SetController(caller, account [20]byte, allow bool) error {
	return r.setRole(caller, RoleController, account, allow)
}

// TransferSuperAdmin hands the super admin role to next.
func (r *Registry) TransferSuperAdmin(caller, next [20]byte) error {
	if err := r.RequireSuperAdmin(caller); err != nil {
		return err
	}
	if types.IsZeroAddress(next) {
		return ErrInvalidAccount
	}
	if err := r.state.RemoveRole(RoleSuperAdmin, caller); err != nil {
		return err
	}
	return r.state.SetRole(RoleSuperAdmin, next)
}

func (r *Registry) setRole(caller [20]byte, role string, account [20]byte, allow bool) error {
	if err := r.RequireSuperAdmin(caller); err != nil {
		return err
	}
	if types.IsZeroAddress(account) {
		return ErrInvalidAccount
	}
	if allow {
		return r.state.SetRole(role, account)
	}
	return r.state.RemoveRole(role, account)
}
