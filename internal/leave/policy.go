package leave

import "go-hrms/internal/employee"

// Action is a decision an actor takes on someone's leave request.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	ActionCancel  Action = "CANCEL"
)

func (a Action) targetStatus() string {
	switch a {
	case ActionApprove:
		return StatusApproved
	case ActionReject:
		return StatusRejected
	default:
		return StatusCanceled
	}
}

// IsAllowedStatusTransition reports whether a request may move from
// currentStatus to targetStatus. PENDING is the only entry state;
// APPROVED may still be cancelled; REJECTED and CANCELLED are terminal.
// Nothing ever re-enters PENDING.
func IsAllowedStatusTransition(currentStatus, targetStatus string) bool {
	switch currentStatus {
	case StatusPending:
		return targetStatus == StatusApproved ||
			targetStatus == StatusRejected ||
			targetStatus == StatusCanceled
	case StatusApproved:
		return targetStatus == StatusCanceled
	default:
		return false
	}
}

// Authorize decides whether actor may perform action on a request owned
// by owner. The rules are evaluated in priority order, first match wins:
//
//  1. the owner may always cancel their own request
//  2. a MANAGER's request is decided only by an ADMIN
//  3. an ADMIN's request is decided only by a different ADMIN
//  4. an EMPLOYEE's request is decided only by a MANAGER in the same department
//
// Any unmatched combination is denied. The same matrix applies to
// approve, reject and cancel; only rule 1 is cancel-specific.
func Authorize(actor, owner *employee.Employee, action Action) bool {
	if action == ActionCancel && actor.ID == owner.ID {
		return true
	}

	switch owner.Role {
	case employee.RoleManager:
		return actor.Role == employee.RoleAdmin
	case employee.RoleAdmin:
		return actor.Role == employee.RoleAdmin && actor.ID != owner.ID
	case employee.RoleEmployee:
		return actor.Role == employee.RoleManager && actor.Department == owner.Department
	default:
		return false
	}
}
