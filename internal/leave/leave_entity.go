package leave

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
	StatusCanceled = "CANCELLED"
)

const (
	TypeAnnual      = "ANNUAL"
	TypeSick        = "SICK"
	TypePersonal    = "PERSONAL"
	TypeMaternity   = "MATERNITY"
	TypePaternity   = "PATERNITY"
	TypeBereavement = "BEREAVEMENT"
	TypeUnpaid      = "UNPAID"
)

// LeaveRequest is the central record of the lifecycle engine. The owner
// never changes after creation; status only moves along the transitions
// in policy.go. DecidedBy, DecidedAt and DecisionComments are written
// together, exactly once, by the transition that leaves PENDING.
// Cancellation is recorded in its own columns so an APPROVED request
// cancelled later keeps its original decision intact.
type LeaveRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_employee_dates"`

	LeaveType string    `gorm:"type:varchar(30);not null;default:'ANNUAL'"`
	StartDate time.Time `gorm:"type:date;not null;index:idx_leave_requests_employee_dates"`
	EndDate   time.Time `gorm:"type:date;not null;index:idx_leave_requests_employee_dates"`
	IsHalfDay bool      `gorm:"not null;default:false"`
	TotalDays int       `gorm:"type:int;not null;default:1"`
	Reason    string    `gorm:"type:text;not null"`

	Status string `gorm:"type:varchar(20);not null;default:'PENDING';index"`

	// CreatedBy is the actor who filed the request, usually the owner
	// but possibly someone filing on their behalf.
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`

	// DecisionComments holds the rejection reason when REJECTED and the
	// approval note when APPROVED; status disambiguates at read time.
	DecidedBy        *uuid.UUID `gorm:"type:uuid"`
	DecidedAt        *time.Time
	DecisionComments *string `gorm:"type:text"`

	CancelledBy *uuid.UUID `gorm:"type:uuid"`
	CancelledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func ValidLeaveType(t string) bool {
	switch t {
	case TypeAnnual, TypeSick, TypePersonal, TypeMaternity,
		TypePaternity, TypeBereavement, TypeUnpaid:
		return true
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCanceled:
		return true
	}
	return false
}
