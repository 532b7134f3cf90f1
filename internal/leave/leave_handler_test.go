package leave_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-hrms/internal/leave"
	leaveerrors "go-hrms/internal/leave/errors"
	"go-hrms/internal/shared/apperror"
	"go-hrms/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
	apperror.Init()
}

type fakeLeaveService struct {
	createFn  func(ctx context.Context, actorID string, req leave.CreateLeaveRequest) (leave.LeaveResponse, error)
	getByIDFn func(ctx context.Context, actorID, id string) (leave.LeaveResponse, error)
	listFn    func(ctx context.Context, actorID string, q leave.ListLeaveQuery) ([]leave.LeaveResponse, int64, error)
	approveFn func(ctx context.Context, actorID, id, comments string) (leave.LeaveResponse, error)
	rejectFn  func(ctx context.Context, actorID, id, rejectionReason string) (leave.LeaveResponse, error)
	cancelFn  func(ctx context.Context, actorID, id string) (leave.LeaveResponse, error)
	deleteFn  func(ctx context.Context, actorID, id string) error
}

func (f *fakeLeaveService) Create(ctx context.Context, actorID string, req leave.CreateLeaveRequest) (leave.LeaveResponse, error) {
	return f.createFn(ctx, actorID, req)
}

func (f *fakeLeaveService) GetByID(ctx context.Context, actorID, id string) (leave.LeaveResponse, error) {
	return f.getByIDFn(ctx, actorID, id)
}

func (f *fakeLeaveService) List(ctx context.Context, actorID string, q leave.ListLeaveQuery) ([]leave.LeaveResponse, int64, error) {
	return f.listFn(ctx, actorID, q)
}

func (f *fakeLeaveService) Approve(ctx context.Context, actorID, id, comments string) (leave.LeaveResponse, error) {
	return f.approveFn(ctx, actorID, id, comments)
}

func (f *fakeLeaveService) Reject(ctx context.Context, actorID, id, rejectionReason string) (leave.LeaveResponse, error) {
	return f.rejectFn(ctx, actorID, id, rejectionReason)
}

func (f *fakeLeaveService) Cancel(ctx context.Context, actorID, id string) (leave.LeaveResponse, error) {
	return f.cancelFn(ctx, actorID, id)
}

func (f *fakeLeaveService) Delete(ctx context.Context, actorID, id string) error {
	return f.deleteFn(ctx, actorID, id)
}

func newTestContext(t *testing.T, method, target string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.ApiEnvelope {
	t.Helper()
	var env response.ApiEnvelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestLeaveHandler_Create(t *testing.T) {
	t.Run("success returns 201 envelope", func(t *testing.T) {
		actorID := uuid.New().String()
		svc := &fakeLeaveService{
			createFn: func(ctx context.Context, gotActor string, req leave.CreateLeaveRequest) (leave.LeaveResponse, error) {
				assert.Equal(t, actorID, gotActor)
				assert.Equal(t, leave.TypeAnnual, req.LeaveType)
				return leave.LeaveResponse{ID: uuid.New().String(), Status: leave.StatusPending}, nil
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodPost, "/api/v1/leaves", gin.H{
			"employee_id": actorID,
			"leave_type":  leave.TypeAnnual,
			"start_date":  "2024-03-04",
			"end_date":    "2024-03-08",
			"reason":      "Family event",
		})
		c.Set("employee_id", actorID)

		h.Create(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Ok)
		assert.Nil(t, env.Error)
	})

	t.Run("negative unknown leave type fails binding", func(t *testing.T) {
		called := false
		svc := &fakeLeaveService{
			createFn: func(ctx context.Context, actorID string, req leave.CreateLeaveRequest) (leave.LeaveResponse, error) {
				called = true
				return leave.LeaveResponse{}, nil
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodPost, "/api/v1/leaves", gin.H{
			"employee_id": uuid.New().String(),
			"leave_type":  "SABBATICAL",
			"start_date":  "2024-03-04",
			"end_date":    "2024-03-08",
			"reason":      "Trip",
		})

		h.Create(c)

		assert.False(t, called)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Ok)
		assert.NotNil(t, env.Error)
	})

	t.Run("negative service conflict maps to 409", func(t *testing.T) {
		svc := &fakeLeaveService{
			createFn: func(ctx context.Context, actorID string, req leave.CreateLeaveRequest) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, leaveerrors.ErrLeaveOverlap
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodPost, "/api/v1/leaves", gin.H{
			"employee_id": uuid.New().String(),
			"leave_type":  leave.TypeAnnual,
			"start_date":  "2024-03-04",
			"end_date":    "2024-03-08",
			"reason":      "Trip",
		})

		h.Create(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Ok)
	})
}

func TestLeaveHandler_List(t *testing.T) {
	t.Run("success includes pagination meta", func(t *testing.T) {
		svc := &fakeLeaveService{
			listFn: func(ctx context.Context, actorID string, q leave.ListLeaveQuery) ([]leave.LeaveResponse, int64, error) {
				assert.Equal(t, leave.StatusPending, q.Status)
				assert.Equal(t, 2, q.Page)
				assert.Equal(t, 5, q.PageSize)
				return []leave.LeaveResponse{{ID: uuid.New().String()}}, 11, nil
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodGet, "/api/v1/leaves?status=PENDING&page=2&page_size=5", nil)

		h.List(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Ok)
		assert.NotNil(t, env.Meta)
		assert.Equal(t, int64(11), env.Meta.Total)
		assert.Equal(t, 2, env.Meta.Page)
		assert.Equal(t, 3, env.Meta.TotalPages)
	})

	t.Run("negative invalid filter maps to 400", func(t *testing.T) {
		svc := &fakeLeaveService{
			listFn: func(ctx context.Context, actorID string, q leave.ListLeaveQuery) ([]leave.LeaveResponse, int64, error) {
				return nil, 0, apperror.InvalidField("status")
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodGet, "/api/v1/leaves?status=WAITING", nil)

		h.List(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLeaveHandler_Decisions(t *testing.T) {
	leaveID := uuid.New().String()
	actorID := uuid.New().String()

	t.Run("approve without body uses empty comment", func(t *testing.T) {
		svc := &fakeLeaveService{
			approveFn: func(ctx context.Context, gotActor, gotID, comments string) (leave.LeaveResponse, error) {
				assert.Equal(t, actorID, gotActor)
				assert.Equal(t, leaveID, gotID)
				assert.Empty(t, comments)
				return leave.LeaveResponse{ID: gotID, Status: leave.StatusApproved}, nil
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodPost, "/api/v1/leaves/"+leaveID+"/approve", nil)
		c.Set("employee_id", actorID)
		c.Params = gin.Params{{Key: "id", Value: leaveID}}

		h.Approve(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		called := false
		svc := &fakeLeaveService{
			rejectFn: func(ctx context.Context, actorID, id, reason string) (leave.LeaveResponse, error) {
				called = true
				return leave.LeaveResponse{}, nil
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodPost, "/api/v1/leaves/"+leaveID+"/reject", gin.H{})
		c.Params = gin.Params{{Key: "id", Value: leaveID}}

		h.Reject(c)

		assert.False(t, called)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("negative settled request maps to 409", func(t *testing.T) {
		svc := &fakeLeaveService{
			cancelFn: func(ctx context.Context, actorID, id string) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, leaveerrors.ErrInvalidStatusTransition
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodPost, "/api/v1/leaves/"+leaveID+"/cancel", nil)
		c.Params = gin.Params{{Key: "id", Value: leaveID}}

		h.Cancel(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Ok)
		errObj, ok := env.Error.(map[string]any)
		assert.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidState, errObj["code"])
	})

	t.Run("negative forbidden decision maps to 403", func(t *testing.T) {
		svc := &fakeLeaveService{
			approveFn: func(ctx context.Context, actorID, id, comments string) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, leaveerrors.ErrDecisionForbidden
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodPost, "/api/v1/leaves/"+leaveID+"/approve", nil)
		c.Params = gin.Params{{Key: "id", Value: leaveID}}

		h.Approve(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestLeaveHandler_GetByID(t *testing.T) {
	t.Run("negative not found maps to 404", func(t *testing.T) {
		svc := &fakeLeaveService{
			getByIDFn: func(ctx context.Context, actorID, id string) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, leaveerrors.ErrLeaveNotFound
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodGet, "/api/v1/leaves/"+uuid.New().String(), nil)
		c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

		h.GetByID(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLeaveHandler_Export(t *testing.T) {
	t.Run("pages through the whole listing", func(t *testing.T) {
		const total = 250

		pages := map[int]int{1: 100, 2: 100, 3: 50}
		var served int
		svc := &fakeLeaveService{
			listFn: func(ctx context.Context, actorID string, q leave.ListLeaveQuery) ([]leave.LeaveResponse, int64, error) {
				assert.Equal(t, 100, q.PageSize)
				n, ok := pages[q.Page]
				assert.True(t, ok, "unexpected page %d", q.Page)

				rows := make([]leave.LeaveResponse, n)
				for i := range rows {
					rows[i] = leave.LeaveResponse{
						ID:        uuid.New().String(),
						LeaveType: leave.TypeAnnual,
						Status:    leave.StatusPending,
						Reason:    "Trip",
					}
				}
				served += n
				return rows, total, nil
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodGet, "/api/v1/leaves/export", nil)

		h.Export(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, total, served)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "leave_requests.xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		assert.NoError(t, err)
		defer f.Close()

		sheetRows, err := f.GetRows("Leave Requests")
		assert.NoError(t, err)
		// Header plus one row per request, nothing truncated.
		assert.Len(t, sheetRows, total+1)
	})

	t.Run("negative scoped listing failure aborts the download", func(t *testing.T) {
		svc := &fakeLeaveService{
			listFn: func(ctx context.Context, actorID string, q leave.ListLeaveQuery) ([]leave.LeaveResponse, int64, error) {
				return nil, 0, leaveerrors.ErrViewForbidden
			},
		}
		h := leave.NewHandler(svc)

		c, w := newTestContext(t, http.MethodGet, "/api/v1/leaves/export", nil)

		h.Export(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestLeaveHandler_Delete(t *testing.T) {
	svc := &fakeLeaveService{
		deleteFn: func(ctx context.Context, actorID, id string) error {
			return nil
		},
	}
	h := leave.NewHandler(svc)

	c, w := newTestContext(t, http.MethodDelete, "/api/v1/leaves/"+uuid.New().String(), nil)
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

	h.Delete(c)

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Ok)
}
