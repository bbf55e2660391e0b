package account

import "fmt"

// Role is the single privilege level attached to every account.
// Privilege is strictly ordered: admin > manager > generic.
type Role string

const (
	RoleGeneric Role = "generic"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ParseRole resolves an inbound role string once at the boundary.
// "staff" is accepted as a legacy spelling of the generic role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "generic", "staff":
		return RoleGeneric, nil
	case "manager":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Privilege() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleGeneric:
		return 1
	}
	return 0
}

// CanViewAllTasks reports whether the role sees every task. A generic
// account only sees tasks assigned to itself.
func (r Role) CanViewAllTasks() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanMutateTasks reports whether the role may create, update, archive and
// delete tasks.
func (r Role) CanMutateTasks() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanManageAccounts reports whether the role may create, update and delete
// accounts. Managers may list accounts but not change them.
func (r Role) CanManageAccounts() bool {
	return r == RoleAdmin
}

// CanListAccounts reports whether the role may read the account list.
func (r Role) CanListAccounts() bool {
	return r == RoleAdmin || r == RoleManager
}

// Viewer is the authenticated identity a request acts as.
type Viewer struct {
	AccountID string
	Role      Role
}

// CanCompleteTask reports whether the viewer may mark the task with the
// given assignee as completed: managers and admins always, a generic
// account only for its own tasks.
func (v Viewer) CanCompleteTask(assigneeID string) bool {
	if v.Role.CanMutateTasks() {
		return true
	}
	return assigneeID != "" && assigneeID == v.AccountID
}
