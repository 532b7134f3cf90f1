package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles form a flat capability tier, not an inheritance chain.
const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
)

// Organizational units used for manager scoping.
const (
	DeptEngineering = "ENGINEERING"
	DeptFinance     = "FINANCE"
	DeptHR          = "HR"
	DeptMarketing   = "MARKETING"
	DeptOperations  = "OPERATIONS"
	DeptSales       = "SALES"
)

type Employee struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FullName   string     `gorm:"type:varchar(100);not null"`
	Email      string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Role       string     `gorm:"type:varchar(20);not null;default:'EMPLOYEE'"`
	Department string     `gorm:"type:varchar(30);not null;index"`
	ManagerID  *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}
