package employee_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go-hrms/internal/employee"
	employeeerrors "go-hrms/internal/employee/errors"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeDirectory struct {
	calls     int
	employees map[string]*employee.Employee
}

func (f *fakeDirectory) GetEmployee(ctx context.Context, id string) (*employee.Employee, error) {
	f.calls++
	if e, ok := f.employees[id]; ok {
		return e, nil
	}
	return nil, employeeerrors.ErrEmployeeNotFound
}

func TestCachedDirectory_GetEmployee(t *testing.T) {
	ctx := context.Background()
	ttl := 5 * time.Minute

	emp := &employee.Employee{
		ID:         uuid.New(),
		FullName:   "Dewi Lestari",
		Email:      "dewi@example.com",
		Role:       employee.RoleManager,
		Department: employee.DeptEngineering,
	}
	key := "employee:" + emp.ID.String()

	t.Run("cache hit skips the source", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		next := &fakeDirectory{employees: map[string]*employee.Employee{}}
		dir := employee.NewCachedDirectory(next, rdb, ttl)

		payload, err := json.Marshal(emp)
		assert.NoError(t, err)
		mock.ExpectGet(key).SetVal(string(payload))

		got, err := dir.GetEmployee(ctx, emp.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, emp.ID, got.ID)
		assert.Equal(t, employee.RoleManager, got.Role)
		assert.Zero(t, next.calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cache miss falls through and populates", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		next := &fakeDirectory{employees: map[string]*employee.Employee{
			emp.ID.String(): emp,
		}}
		dir := employee.NewCachedDirectory(next, rdb, ttl)

		payload, err := json.Marshal(emp)
		assert.NoError(t, err)
		mock.ExpectGet(key).RedisNil()
		mock.ExpectSet(key, payload, ttl).SetVal("OK")

		got, err := dir.GetEmployee(ctx, emp.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, emp.ID, got.ID)
		assert.Equal(t, 1, next.calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt entry falls through", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		next := &fakeDirectory{employees: map[string]*employee.Employee{
			emp.ID.String(): emp,
		}}
		dir := employee.NewCachedDirectory(next, rdb, ttl)

		payload, err := json.Marshal(emp)
		assert.NoError(t, err)
		mock.ExpectGet(key).SetVal("{not json")
		mock.ExpectSet(key, payload, ttl).SetVal("OK")

		got, err := dir.GetEmployee(ctx, emp.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, emp.ID, got.ID)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("redis outage degrades to the source", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		next := &fakeDirectory{employees: map[string]*employee.Employee{
			emp.ID.String(): emp,
		}}
		dir := employee.NewCachedDirectory(next, rdb, ttl)

		payload, err := json.Marshal(emp)
		assert.NoError(t, err)
		mock.ExpectGet(key).SetErr(errors.New("connection refused"))
		mock.ExpectSet(key, payload, ttl).SetErr(errors.New("connection refused"))

		got, err := dir.GetEmployee(ctx, emp.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, emp.ID, got.ID)
		assert.Equal(t, 1, next.calls)
	})

	t.Run("negative unknown employee is not cached", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		next := &fakeDirectory{employees: map[string]*employee.Employee{}}
		dir := employee.NewCachedDirectory(next, rdb, ttl)

		unknown := uuid.New().String()
		mock.ExpectGet("employee:" + unknown).RedisNil()

		_, err := dir.GetEmployee(ctx, unknown)

		assert.ErrorIs(t, err, employeeerrors.ErrEmployeeNotFound)
		assert.Equal(t, 1, next.calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
