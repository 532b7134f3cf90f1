package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go-hrms/internal/employee"
	"go-hrms/internal/events"
	leaveerrors "go-hrms/internal/leave/errors"
	"go-hrms/internal/messaging/kafka"
	"go-hrms/internal/shared/apperror"
	"go-hrms/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config carries lifecycle policy knobs. AllowOverlap permits an
// employee to file requests over ranges that intersect an existing
// PENDING or APPROVED request; the default is strict rejection.
type Config struct {
	AllowOverlap bool
}

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, actorID string, req CreateLeaveRequest) (LeaveResponse, error)
	GetByID(ctx context.Context, actorID, id string) (LeaveResponse, error)
	List(ctx context.Context, actorID string, q ListLeaveQuery) ([]LeaveResponse, int64, error)
	Approve(ctx context.Context, actorID, id, comments string) (LeaveResponse, error)
	Reject(ctx context.Context, actorID, id, rejectionReason string) (LeaveResponse, error)
	Cancel(ctx context.Context, actorID, id string) (LeaveResponse, error)
	Delete(ctx context.Context, actorID, id string) error
}

type service struct {
	db        *sql.DB
	repo      Repository
	directory employee.Directory
	outbox    kafka.OutboxRepository
	cfg       Config
	logger    *zap.Logger
}

func NewService(db *sql.DB, repo Repository, directory employee.Directory, cfg Config, logger ...*zap.Logger) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{db: db, repo: repo, directory: directory, cfg: cfg, logger: l}
}

func NewServiceWithOutbox(db *sql.DB, repo Repository, directory employee.Directory, outbox kafka.OutboxRepository, cfg Config, logger ...*zap.Logger) Service {
	svc := NewService(db, repo, directory, cfg, logger...).(*service)
	svc.outbox = outbox
	return svc
}

func (s *service) Create(ctx context.Context, actorID string, req CreateLeaveRequest) (LeaveResponse, error) {
	s.logger.Debug("create leave requested",
		zap.String("actor_id", actorID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	createdBy, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidActorID
	}
	if !ValidLeaveType(req.LeaveType) {
		return LeaveResponse{}, leaveerrors.ErrInvalidLeaveType
	}
	if strings.TrimSpace(req.Reason) == "" {
		return LeaveResponse{}, leaveerrors.ErrReasonRequired
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return LeaveResponse{}, err
	}
	if startDate.After(endDate) {
		return LeaveResponse{}, leaveerrors.ErrInvalidDateRange
	}

	// The owner must resolve to a real employee before anything persists.
	owner, err := s.directory.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		s.logger.Warn("create leave owner lookup failed", zap.String("employee_id", req.EmployeeID), zap.Error(err))
		return LeaveResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if !s.cfg.AllowOverlap {
		overlap, err := qtx.HasOverlappingPeriod(ctx, owner.ID.String(), startDate, endDate, nil)
		if err != nil {
			s.logger.Error("create leave overlap check failed", zap.Error(err))
			return LeaveResponse{}, err
		}
		if overlap {
			s.logger.Warn("create leave overlap detected",
				zap.String("employee_id", req.EmployeeID),
				zap.String("start_date", req.StartDate),
				zap.String("end_date", req.EndDate),
			)
			return LeaveResponse{}, leaveerrors.ErrLeaveOverlap
		}
	}

	l := &LeaveRequest{
		ID:         uuid.New(),
		EmployeeID: owner.ID,
		LeaveType:  req.LeaveType,
		StartDate:  startDate,
		EndDate:    endDate,
		IsHalfDay:  req.IsHalfDay,
		TotalDays:  Workdays(startDate, endDate, req.IsHalfDay),
		Reason:     req.Reason,
		Status:     StatusPending,
		CreatedBy:  createdBy,
	}

	if err := qtx.Create(ctx, l); err != nil {
		s.logger.Error("create leave persist failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := s.enqueueOutbox(ctx, tx, l.ID.String(), events.LeaveCreatedEventType, events.LeaveCreatedEvent{
		EventType:  events.LeaveCreatedEventType,
		LeaveID:    l.ID.String(),
		EmployeeID: l.EmployeeID.String(),
		LeaveType:  l.LeaveType,
		TotalDays:  l.TotalDays,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("create leave outbox enqueue failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create leave commit failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	s.logger.Info("create leave success",
		zap.String("leave_id", l.ID.String()),
		zap.String("employee_id", req.EmployeeID),
		zap.Int("total_days", l.TotalDays),
	)

	return mapToResponse(*l), nil
}

func (s *service) Approve(ctx context.Context, actorID, id, comments string) (LeaveResponse, error) {
	return s.decide(ctx, actorID, id, ActionApprove, comments)
}

func (s *service) Reject(ctx context.Context, actorID, id, rejectionReason string) (LeaveResponse, error) {
	return s.decide(ctx, actorID, id, ActionReject, rejectionReason)
}

func (s *service) Cancel(ctx context.Context, actorID, id string) (LeaveResponse, error) {
	return s.decide(ctx, actorID, id, ActionCancel, "")
}

// decide applies a single lifecycle transition. Transition legality is
// checked before authorization so a settled request reads as an invalid
// transition rather than revealing who may act on it. The persist step
// is a compare-and-swap on the loaded status; losing the race maps to
// the same invalid-transition error the caller would have seen had it
// read the winner's state first.
func (s *service) decide(ctx context.Context, actorID, id string, action Action, comments string) (LeaveResponse, error) {
	s.logger.Debug("decide leave requested",
		zap.String("leave_id", id),
		zap.String("actor_id", actorID),
		zap.String("action", string(action)),
	)

	if _, err := uuid.Parse(actorID); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("decide leave begin tx failed", zap.Error(err))
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}

	fromStatus := l.Status
	if !IsAllowedStatusTransition(fromStatus, action.targetStatus()) {
		s.logger.Warn("decide leave invalid transition",
			zap.String("leave_id", id),
			zap.String("from_status", fromStatus),
			zap.String("action", string(action)),
		)
		return LeaveResponse{}, leaveerrors.ErrInvalidStatusTransition
	}

	actor, err := s.directory.GetEmployee(ctx, actorID)
	if err != nil {
		return LeaveResponse{}, err
	}
	owner, err := s.directory.GetEmployee(ctx, l.EmployeeID.String())
	if err != nil {
		return LeaveResponse{}, err
	}
	if !Authorize(actor, owner, action) {
		s.logger.Warn("decide leave forbidden",
			zap.String("leave_id", id),
			zap.String("actor_id", actorID),
			zap.String("actor_role", actor.Role),
			zap.String("owner_role", owner.Role),
			zap.String("action", string(action)),
		)
		return LeaveResponse{}, leaveerrors.ErrDecisionForbidden
	}

	now := time.Now().UTC()
	switch action {
	case ActionApprove:
		note := comments
		if strings.TrimSpace(note) == "" {
			note = "Approved"
		}
		l.Status = StatusApproved
		l.DecidedBy = &actor.ID
		l.DecidedAt = &now
		l.DecisionComments = &note
	case ActionReject:
		if strings.TrimSpace(comments) == "" {
			return LeaveResponse{}, leaveerrors.ErrRejectionReasonRequired
		}
		l.Status = StatusRejected
		l.DecidedBy = &actor.ID
		l.DecidedAt = &now
		l.DecisionComments = &comments
	case ActionCancel:
		// Decision fields stay untouched so an approved-then-cancelled
		// request keeps its original approval record.
		l.Status = StatusCanceled
		l.CancelledBy = &actor.ID
		l.CancelledAt = &now
	}

	rows, err := qtx.UpdateStatus(ctx, l, fromStatus)
	if err != nil {
		if isSerializationFailure(err) {
			s.logger.Warn("decide leave lost serialization race", zap.String("leave_id", id))
			return LeaveResponse{}, leaveerrors.ErrInvalidStatusTransition
		}
		s.logger.Error("decide leave persist failed",
			zap.String("leave_id", id),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}
	if rows == 0 {
		// Another decide won between our read and the update.
		s.logger.Warn("decide leave lost update race",
			zap.String("leave_id", id),
			zap.String("from_status", fromStatus),
		)
		return LeaveResponse{}, leaveerrors.ErrInvalidStatusTransition
	}

	if err := s.enqueueOutbox(ctx, tx, l.ID.String(), events.LeaveDecidedEventType, events.LeaveDecidedEvent{
		EventType:  events.LeaveDecidedEventType,
		LeaveID:    l.ID.String(),
		EmployeeID: l.EmployeeID.String(),
		ActorID:    actor.ID.String(),
		Status:     l.Status,
		OccurredAt: now,
	}); err != nil {
		s.logger.Error("decide leave outbox enqueue failed", zap.Error(err))
		return LeaveResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("decide leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveResponse{}, err
	}
	s.logger.Info("decide leave success",
		zap.String("leave_id", id),
		zap.String("status", l.Status),
		zap.String("actor_id", actorID),
	)
	l.UpdatedAt = now
	return mapToResponse(*l), nil
}

func (s *service) GetByID(ctx context.Context, actorID, id string) (LeaveResponse, error) {
	caller, err := s.directory.GetEmployee(ctx, actorID)
	if err != nil {
		return LeaveResponse{}, err
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveResponse{}, err
	}

	if err := s.canView(ctx, caller, l); err != nil {
		return LeaveResponse{}, err
	}
	return mapToResponse(*l), nil
}

// canView mirrors the listing scope: admins see everything, owners see
// their own records, managers see their department. A scoped caller
// probing a foreign id gets Forbidden, not NotFound; id guessing is not
// part of the threat model here.
func (s *service) canView(ctx context.Context, caller *employee.Employee, l *LeaveRequest) error {
	if caller.Role == employee.RoleAdmin || caller.ID == l.EmployeeID {
		return nil
	}
	if caller.Role == employee.RoleManager {
		owner, err := s.directory.GetEmployee(ctx, l.EmployeeID.String())
		if err != nil {
			return err
		}
		if owner.Department == caller.Department {
			return nil
		}
	}
	return leaveerrors.ErrViewForbidden
}

func (s *service) List(ctx context.Context, actorID string, q ListLeaveQuery) ([]LeaveResponse, int64, error) {
	caller, err := s.directory.GetEmployee(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}

	f, err := buildFilter(q)
	if err != nil {
		return nil, 0, err
	}

	// Role scoping is applied after the caller's own filters so it can
	// only ever narrow the result set, never widen it.
	switch caller.Role {
	case employee.RoleAdmin:
	case employee.RoleManager:
		f.Department = caller.Department
	default:
		f.EmployeeID = caller.ID.String()
	}

	leaves, total, err := s.repo.Search(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return mapToListResponse(leaves), total, nil
}

func (s *service) Delete(ctx context.Context, actorID, id string) error {
	caller, err := s.directory.GetEmployee(ctx, actorID)
	if err != nil {
		return err
	}
	// Administrative removal bypasses the state machine entirely.
	if caller.Role != employee.RoleAdmin {
		return apperror.ErrForbidden
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Delete(ctx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("delete leave success", zap.String("leave_id", id), zap.String("actor_id", actorID))
	return nil
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"start_date": "start_date",
	"end_date":   "end_date",
	"status":     "status",
	"total_days": "total_days",
}

func buildFilter(q ListLeaveQuery) (Filter, error) {
	f := Filter{
		LeaveType: q.LeaveType,
		Status:    q.Status,
		Text:      q.Q,
		Page:      q.Page,
		PageSize:  q.PageSize,
	}

	if q.EmployeeID != "" {
		if _, err := uuid.Parse(q.EmployeeID); err != nil {
			return Filter{}, leaveerrors.ErrInvalidEmployeeID
		}
		f.EmployeeID = q.EmployeeID
	}
	if q.LeaveType != "" && !ValidLeaveType(q.LeaveType) {
		return Filter{}, leaveerrors.ErrInvalidLeaveType
	}
	if q.Status != "" && !ValidStatus(q.Status) {
		return Filter{}, apperror.InvalidField("Status")
	}
	if q.DateFrom != "" {
		d, err := parseDate(q.DateFrom)
		if err != nil {
			return Filter{}, err
		}
		f.DateFrom = &d
	}
	if q.DateTo != "" {
		d, err := parseDate(q.DateTo)
		if err != nil {
			return Filter{}, err
		}
		f.DateTo = &d
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return Filter{}, leaveerrors.ErrInvalidDateRange
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 10
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}

	col, ok := sortColumns[q.Sort]
	if !ok {
		col = "created_at"
	}
	f.SortColumn = col
	f.SortDesc = strings.ToLower(q.Dir) != "asc"

	return f, nil
}

func (s *service) enqueueOutbox(ctx context.Context, tx *sql.Tx, aggregateID, eventType string, payload any) error {
	if s.outbox == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "leave_request",
		AggregateID:   aggregateID,
		EventType:     eventType,
		Topic:         events.LeaveLifecycleTopic,
		Payload:       body,
		Status:        kafka.OutboxStatusPending,
	})
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}
