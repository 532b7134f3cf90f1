package leave

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Filter is the repository-level view of a listing query. The service
// fills Department and EmployeeID according to the caller's role; the
// repository only combines predicates.
type Filter struct {
	EmployeeID string
	Department string
	LeaveType  string
	Status     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Text       string

	Page       int
	PageSize   int
	SortColumn string
	SortDesc   bool
}

//go:generate mockgen -source=leave_repo.go -destination=mock/leave_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	// UpdateStatus applies the transition only if the row is still in
	// fromStatus and reports how many rows matched. Zero means the
	// caller lost a concurrent decide race.
	UpdateStatus(ctx context.Context, l *LeaveRequest, fromStatus string) (int64, error)
	Search(ctx context.Context, f Filter) ([]LeaveRequest, int64, error)
	HasOverlappingPeriod(ctx context.Context, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

// conn binds the statement to the caller's transaction when one is set,
// the same way gorm's own Begin does. Domain writes then commit or roll
// back together with whatever else rides that transaction.
func (r *repository) conn(ctx context.Context) *gorm.DB {
	if r.tx == nil {
		return r.db.WithContext(ctx)
	}
	db := r.db.Session(&gorm.Session{Context: ctx, NewDB: true})
	db.Statement.ConnPool = r.tx
	return db
}

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	return r.conn(ctx).Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.conn(ctx).First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) UpdateStatus(ctx context.Context, l *LeaveRequest, fromStatus string) (int64, error) {
	res := r.conn(ctx).
		Model(&LeaveRequest{}).
		Where("id = ?", l.ID).
		Where("status = ?", fromStatus).
		Updates(map[string]any{
			"status":            l.Status,
			"decided_by":        l.DecidedBy,
			"decided_at":        l.DecidedAt,
			"decision_comments": l.DecisionComments,
			"cancelled_by":      l.CancelledBy,
			"cancelled_at":      l.CancelledAt,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) Search(ctx context.Context, f Filter) ([]LeaveRequest, int64, error) {
	db := r.conn(ctx).
		Model(&LeaveRequest{}).
		Joins("JOIN employees ON employees.id = leave_requests.employee_id").
		Where("employees.deleted_at IS NULL")

	if f.Department != "" {
		db = db.Where("employees.department = ?", f.Department)
	}
	if f.EmployeeID != "" {
		db = db.Where("leave_requests.employee_id = ?", f.EmployeeID)
	}
	if f.LeaveType != "" {
		db = db.Where("leave_requests.leave_type = ?", f.LeaveType)
	}
	if f.Status != "" {
		db = db.Where("leave_requests.status = ?", f.Status)
	}
	if f.DateFrom != nil {
		db = db.Where("leave_requests.end_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		db = db.Where("leave_requests.start_date <= ?", *f.DateTo)
	}
	if f.Text != "" {
		db = db.Where("leave_requests.reason ILIKE ?", "%"+f.Text+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "leave_requests." + f.SortColumn
	if f.SortDesc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	var leaves []LeaveRequest
	err := db.Order(order).
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&leaves).Error
	return leaves, total, err
}

func (r *repository) HasOverlappingPeriod(ctx context.Context, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error) {
	db := r.conn(ctx).
		Model(&LeaveRequest{}).
		Where("employee_id = ?", employeeID).
		Where("status NOT IN ?", []string{StatusRejected, StatusCanceled}).
		Where("NOT (end_date < ? OR start_date > ?)", startDate, endDate)

	if excludeID != nil && *excludeID != "" {
		db = db.Where("id <> ?", *excludeID)
	}

	var count int64
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.conn(ctx).Delete(&LeaveRequest{}, "id = ?", id).Error
}
