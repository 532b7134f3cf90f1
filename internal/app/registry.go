package app

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	"go-hrms/internal/employee"
	"go-hrms/internal/leave"
	"go-hrms/internal/messaging/kafka"
	"go-hrms/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	// --- Repositories ---
	employeeRepo := employee.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Directory ---
	directory := employee.NewCachedDirectory(
		employee.NewDirectory(employeeRepo),
		rdb,
		5*time.Minute,
	)

	// --- RBAC Core ---
	rbacService, err := rbac.NewService()
	if err != nil {
		return err
	}

	// --- Services ---
	leaveCfg := leave.Config{
		AllowOverlap: os.Getenv("LEAVE_ALLOW_OVERLAP") == "true",
	}
	leaveService := leave.NewServiceWithOutbox(db, leaveRepo, directory, outboxRepo, leaveCfg)

	// --- Handlers ---
	employeeHandler := employee.NewHandler(employeeRepo, directory)
	leaveHandler := leave.NewHandler(leaveService)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		employee.RegisterRoutes(api, employeeHandler, rbacService)
		leave.RegisterRoutes(api, leaveHandler, rbacService)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return nil
}
