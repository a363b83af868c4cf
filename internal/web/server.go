// Package web Web API 服务
package web

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/smysle/huzz-rng/internal/config"
	"github.com/smysle/huzz-rng/internal/export"
	"github.com/smysle/huzz-rng/internal/service"
	pkglogger "github.com/smysle/huzz-rng/pkg/logger"
	"github.com/smysle/huzz-rng/pkg/utils"
)

// Server Web 服务器
type Server struct {
	app       *fiber.App
	cfg       *config.APIConfig
	db        *gorm.DB
	codes     *service.CodeService
	exports   *service.ExportService
	confirm   *utils.ConfirmCache
	validate  *validator.Validate
	startTime time.Time
}

// Deps 服务依赖
type Deps struct {
	DB      *gorm.DB
	Codes   *service.CodeService
	Exports *service.ExportService
}

// New 创建 Web 服务器
func New(cfg *config.APIConfig, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// 兑换码可能包含 % # 等符号，路径参数需要解码
		UnescapePath: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := errorStatus(err)
			if code >= fiber.StatusInternalServerError {
				pkglogger.Error().Err(err).Str("path", c.Path()).Msg("【API服务】请求失败")
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// 中间件
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowOrigins, ","),
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	server := &Server{
		app:       app,
		cfg:       cfg,
		db:        deps.DB,
		codes:     deps.Codes,
		exports:   deps.Exports,
		confirm:   utils.NewConfirmCache(time.Duration(cfg.ConfirmTTLSeconds) * time.Second),
		validate:  validator.New(),
		startTime: time.Now(),
	}

	// 注册路由
	server.registerRoutes()

	return server
}

// errorStatus 业务错误对应的 HTTP 状态码
func errorStatus(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, service.ErrInvalidParameter), errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, export.ErrPageOutOfRange):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrConfirmationRequired):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrCodeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvariantViolation):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrExhaustedCapacity):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	// 健康检查
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/", s.healthCheck)

	// 详细状态
	s.app.Get("/status", s.detailedStatus)

	// API v1
	v1 := s.app.Group("/api/v1")

	codes := v1.Group("/codes")
	codes.Get("/", s.listCodes)
	codes.Post("/", s.generateCodes)
	codes.Delete("/", s.clearCodes)
	codes.Post("/confirm", s.issueConfirmation)
	codes.Get("/:code", s.getCode)
	codes.Post("/:code/use", s.useCode)
	codes.Delete("/:code", s.deleteCode)

	v1.Get("/stats", s.getStats)
	v1.Get("/export/:format", s.exportCodes)
}

// Start 启动服务器
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	pkglogger.Info().Str("addr", addr).Msg("【API服务】启动中...")

	return s.app.Listen(addr)
}

// Stop 停止服务器
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

// StatusResponse 详细状态响应
type StatusResponse struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	Uptime   string         `json:"uptime"`
	System   SystemInfo     `json:"system"`
	Database DatabaseStatus `json:"database"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
}

// DatabaseStatus 数据库状态
type DatabaseStatus struct {
	Connected   bool  `json:"connected"`
	CodeCount   int64 `json:"code_count"`
	UnusedCount int64 `json:"unused_count"`
}

// detailedStatus 详细状态
func (s *Server) detailedStatus(c *fiber.Ctx) error {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var dbStatus DatabaseStatus
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil && sqlDB.Ping() == nil {
			dbStatus.Connected = true
			if stats, err := s.codes.GetCodeStats(); err == nil {
				dbStatus.CodeCount = stats.Total
				dbStatus.UnusedCount = stats.Unused
			}
		}
	}

	status := "ok"
	if !dbStatus.Connected {
		status = "degraded"
	}

	return c.JSON(StatusResponse{
		Status:  status,
		Version: service.GeneratorVersion.String(),
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     utils.FormatSize(int64(memStats.Alloc)),
		},
		Database: dbStatus,
	})
}

// getStats 获取统计
func (s *Server) getStats(c *fiber.Ctx) error {
	stats, err := s.codes.GetCodeStats()
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
