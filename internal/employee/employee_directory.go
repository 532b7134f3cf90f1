package employee

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Directory resolves an employee id to its role, department and manager
// relation. The leave engine consumes employees exclusively through this
// interface.
//
//go:generate mockgen -source=employee_directory.go -destination=mock/employee_directory_mock.go -package=mock
type Directory interface {
	GetEmployee(ctx context.Context, id string) (*Employee, error)
}

type directory struct {
	repo Repository
}

func NewDirectory(repo Repository) Directory {
	return &directory{repo: repo}
}

func (d *directory) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	return d.repo.FindByID(ctx, id)
}

type cachedDirectory struct {
	next   Directory
	rdb    *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewCachedDirectory wraps a Directory with a redis read-through cache.
// Concurrent lookups for the same id are collapsed into one fetch.
func NewCachedDirectory(next Directory, rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) Directory {
	l := zap.L().Named("employee.directory")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employee.directory")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedDirectory{next: next, rdb: rdb, ttl: ttl, logger: l}
}

func cacheKey(id string) string {
	return "employee:" + id
}

func (d *cachedDirectory) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	val, err := d.rdb.Get(ctx, cacheKey(id)).Result()
	if err == nil {
		var emp Employee
		if unmarshalErr := json.Unmarshal([]byte(val), &emp); unmarshalErr == nil {
			return &emp, nil
		}
		// Corrupt entry, fall through to the source of truth.
		d.logger.Warn("cache entry unreadable", zap.String("employee_id", id))
	} else if !errors.Is(err, redis.Nil) {
		d.logger.Warn("cache read failed", zap.String("employee_id", id), zap.Error(err))
	}

	v, err, _ := d.group.Do(id, func() (any, error) {
		emp, err := d.next.GetEmployee(ctx, id)
		if err != nil {
			return nil, err
		}
		if payload, marshalErr := json.Marshal(emp); marshalErr == nil {
			if setErr := d.rdb.Set(ctx, cacheKey(id), payload, d.ttl).Err(); setErr != nil {
				d.logger.Warn("cache write failed", zap.String("employee_id", id), zap.Error(setErr))
			}
		}
		return emp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Employee), nil
}
