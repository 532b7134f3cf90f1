package leave

import "time"

type CreateLeaveRequest struct {
	EmployeeID string `json:"employee_id" binding:"required,uuid"`
	LeaveType  string `json:"leave_type" binding:"required,oneof=ANNUAL SICK PERSONAL MATERNITY PATERNITY BEREAVEMENT UNPAID"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	IsHalfDay  bool   `json:"is_half_day"`
	Reason     string `json:"reason" binding:"required"`
}

type ApproveLeaveRequest struct {
	Comments string `json:"comments"`
}

type RejectLeaveRequest struct {
	RejectionReason string `json:"rejection_reason" binding:"required"`
}

// ListLeaveQuery carries the caller-supplied filters. Every non-empty
// field becomes an AND predicate; the service narrows the set further
// by the caller's role before it reaches the repository.
type ListLeaveQuery struct {
	EmployeeID string `form:"employee_id"`
	LeaveType  string `form:"leave_type"`
	Status     string `form:"status"`
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
	Q          string `form:"q"`
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=10"`
	Sort       string `form:"sort,default=created_at"`
	Dir        string `form:"dir,default=desc"`
}

type LeaveResponse struct {
	ID               string  `json:"id"`
	EmployeeID       string  `json:"employee_id"`
	LeaveType        string  `json:"leave_type"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	IsHalfDay        bool    `json:"is_half_day"`
	TotalDays        int     `json:"total_days"`
	Reason           string  `json:"reason"`
	Status           string  `json:"status"`
	DecidedBy        *string `json:"decided_by,omitempty"`
	DecidedAt        *string `json:"decided_at,omitempty"`
	DecisionComments *string `json:"decision_comments,omitempty"`
	CancelledBy      *string `json:"cancelled_by,omitempty"`
	CancelledAt      *string `json:"cancelled_at,omitempty"`
	CreatedBy        string  `json:"created_by"`
	CreatedAt        string  `json:"created_at"`
}

func mapToResponse(l LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:         l.ID.String(),
		EmployeeID: l.EmployeeID.String(),
		LeaveType:  l.LeaveType,
		StartDate:  l.StartDate.Format("2006-01-02"),
		EndDate:    l.EndDate.Format("2006-01-02"),
		IsHalfDay:  l.IsHalfDay,
		TotalDays:  l.TotalDays,
		Reason:     l.Reason,
		Status:     l.Status,
		CreatedBy:  l.CreatedBy.String(),
		CreatedAt:  l.CreatedAt.Format(time.RFC3339),
	}
	if l.DecidedBy != nil {
		v := l.DecidedBy.String()
		resp.DecidedBy = &v
	}
	if l.DecidedAt != nil {
		v := l.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &v
	}
	resp.DecisionComments = l.DecisionComments
	if l.CancelledBy != nil {
		v := l.CancelledBy.String()
		resp.CancelledBy = &v
	}
	if l.CancelledAt != nil {
		v := l.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &v
	}
	return resp
}

func mapToListResponse(leaves []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, len(leaves))
	for i, l := range leaves {
		resp[i] = mapToResponse(l)
	}
	return resp
}
