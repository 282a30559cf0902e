// Package policy decides whether an actor may read or mutate a resource.
// Every user, category and transaction mutation goes through CanAct before
// storage is touched.
package policy

import (
	"fmt"

	appErrors "github.com/sebuszqo/ExpenseTracker/internal/errors"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID   int64
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owner identifies whose resource is being acted on.
type Owner struct {
	ID   int64
	Role Role
}

type Decision struct {
	Allowed bool
	Reason  string
}

var Allow = Decision{Allowed: true}

func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Err turns a denial into a FORBIDDEN error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return appErrors.NewForbiddenError(d.Reason)
}

// InScope reports whether the resource is visible to the actor at all.
// Admins look resources up globally by id, everyone else only among their own.
func InScope(actor Actor, ownerID int64) bool {
	return actor.IsAdmin() || actor.ID == ownerID
}

func CanAct(actor Actor, action Action, owner Owner) Decision {
	if actor.ID == owner.ID {
		return Allow
	}
	if !actor.IsAdmin() {
		return Deny(fmt.Sprintf("You are not allowed to %s resources of another user", action))
	}
	if action != ActionRead && owner.Role == RoleAdmin {
		return Deny(fmt.Sprintf("You are not allowed to %s resources of another Administrator", action))
	}
	return Allow
}

// CanSetRole is consulted on top of CanAct whenever an update carries a role.
func CanSetRole(actor Actor, target Owner, role Role) Decision {
	if !role.Valid() {
		return Deny(fmt.Sprintf("Unknown role %q", role))
	}
	if !actor.IsAdmin() {
		return Deny("You are not allowed to change your role")
	}
	return CanAct(actor, ActionUpdate, target)
}

// RequiresPasswordConfirmation is true when users delete their own account.
func RequiresPasswordConfirmation(actor Actor, target Owner) bool {
	return actor.ID == target.ID
}

func RequireAdmin(actor Actor) Decision {
	if !actor.IsAdmin() {
		return Deny("This operation is reserved for Administrators")
	}
	return Allow
}
