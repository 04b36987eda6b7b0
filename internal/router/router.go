package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/snbp-backend/internal/config"
	"github.com/stemsi/snbp-backend/internal/handler"
	"github.com/stemsi/snbp-backend/internal/middleware"
	"github.com/stemsi/snbp-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Student  *handler.StudentHandler
	Major    *handler.MajorHandler
	Grade    *handler.GradeHandler
	Rebuttal *handler.RebuttalHandler
	Recalc   *handler.RecalcHandler
	Report   *handler.ReportHandler
	Import   *handler.ImportHandler
	Setting  *handler.SettingHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// Authentication is handled by the school's reverse proxy in front of this
// service, so the groups only separate the student-facing intake surface
// from the admin surface.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Student-facing Group (Rate Limited) ────────────────────────
	// Rebuttal intake is the only surface students hit directly.
	intakeLimiter := middleware.NewRateLimiter(10, time.Minute)
	studentAPI := router.Group("/api/v1/rebuttals")
	{
		studentAPI.POST("", intakeLimiter.Middleware(), handlers.Rebuttal.Submit)
		studentAPI.GET("/:id", handlers.Rebuttal.Get)
	}

	// ─── 2. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	{
		// Students and their grades.
		adminAPI.GET("/students", handlers.Student.List)
		adminAPI.POST("/students", handlers.Student.Create)
		adminAPI.GET("/students/:id", handlers.Student.Get)
		adminAPI.PUT("/students/:id", handlers.Student.Update)
		adminAPI.PATCH("/students/:id/status", handlers.Student.SetStatus)
		adminAPI.DELETE("/students/:id", handlers.Student.Delete)
		adminAPI.GET("/students/:id/average", handlers.Student.Preview)
		adminAPI.GET("/students/:id/grades", handlers.Grade.ListByStudent)
		adminAPI.PUT("/students/:id/grades", handlers.Grade.Upsert)
		adminAPI.GET("/students/:id/rebuttals", handlers.Rebuttal.ListByStudent)

		// Majors and quota policy.
		adminAPI.GET("/majors", handlers.Major.GetAll)
		adminAPI.POST("/majors", handlers.Major.Create)
		adminAPI.GET("/majors/:id", handlers.Major.Get)
		adminAPI.PUT("/majors/:id", handlers.Major.Update)
		adminAPI.DELETE("/majors/:id", handlers.Major.Delete)
		adminAPI.GET("/majors/:id/report", handlers.Report.MajorReport)

		// Rebuttal review.
		adminAPI.GET("/rebuttals/pending", handlers.Rebuttal.ListPending)
		adminAPI.POST("/rebuttals/:id/approve", handlers.Rebuttal.Approve)
		adminAPI.POST("/rebuttals/:id/reject", handlers.Rebuttal.Reject)

		// Engine controls.
		adminAPI.POST("/recalc", handlers.Recalc.Trigger)
		adminAPI.POST("/import", handlers.Import.Import)
		adminAPI.GET("/settings/weights", handlers.Setting.GetWeights)
		adminAPI.PUT("/settings/weights", handlers.Setting.UpdateWeights)
	}

	return router
}
