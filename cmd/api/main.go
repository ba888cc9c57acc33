package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tutorbase/tutor-api/api/swagger"
	"github.com/tutorbase/tutor-api/internal/handler"
	"github.com/tutorbase/tutor-api/internal/middleware"
	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/internal/repository"
	"github.com/tutorbase/tutor-api/internal/service"
	"github.com/tutorbase/tutor-api/pkg/cache"
	"github.com/tutorbase/tutor-api/pkg/config"
	"github.com/tutorbase/tutor-api/pkg/database"
	"github.com/tutorbase/tutor-api/pkg/logger"
	corsmiddleware "github.com/tutorbase/tutor-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorbase/tutor-api/pkg/middleware/requestid"
	"github.com/tutorbase/tutor-api/pkg/storage"
)

// @title TutorBase API
// @version 1.0.0
// @description Tutoring center back office: rosters, schedules, attendance and tuition
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "tutor-api",
		Audience:           []string{"tutor-api"},
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, teacherRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, classRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(classRepo, enrollmentRepo, attendanceRepo, validate, logr)
	tuitionSvc := service.NewTuitionService(classRepo, enrollmentRepo, paymentRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(tuitionSvc, attendanceSvc, classRepo, enrollmentRepo, teacherRepo, cacheSvc, metricsSvc, logr)
	exportSvc := service.NewExportService(tuitionSvc, attendanceSvc, nil, nil, logr)

	exportStore, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("export storage init failed", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.Export.SigningSecret, cfg.Export.DownloadTTL)
	exportJobSvc := service.NewExportJobService(exportSvc, exportStore, exportSigner, metricsSvc, cfg.Export.Workers, validate, logr)
	exportJobSvc.Start(context.Background())
	defer exportJobSvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	classHandler := handler.NewClassHandler(classSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	tuitionHandler := handler.NewTuitionHandler(tuitionSvc, cfg.Ledger)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, metricsSvc)
	exportHandler := handler.NewExportHandler(exportSvc, exportJobSvc, cfg.Ledger)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	students := protected.Group("/students", staff)
	{
		students.GET("", studentHandler.List)
		students.POST("", studentHandler.Create)
		students.GET("/:id", studentHandler.Get)
		students.PUT("/:id", studentHandler.Update)
		students.DELETE("/:id", adminOnly, studentHandler.Delete)
	}

	teachers := protected.Group("/teachers", staff)
	{
		teachers.GET("", teacherHandler.List)
		teachers.POST("", teacherHandler.Create)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.PUT("/:id", teacherHandler.Update)
		teachers.DELETE("/:id", adminOnly, teacherHandler.Delete)
	}

	classes := protected.Group("/classes", staff)
	{
		classes.GET("", classHandler.List)
		classes.POST("", classHandler.Create)
		classes.GET("/:id", classHandler.Get)
		classes.PUT("/:id", classHandler.Update)
		classes.DELETE("/:id", adminOnly, classHandler.Delete)
	}

	enrollments := protected.Group("/enrollments", staff)
	{
		enrollments.GET("", enrollmentHandler.List)
		enrollments.POST("", enrollmentHandler.Enroll)
		enrollments.POST("/:id/leave", enrollmentHandler.Leave)
		enrollments.PATCH("/:id/status", enrollmentHandler.UpdateStatus)
	}

	attendance := protected.Group("/attendance", staff)
	{
		attendance.GET("/matrix", attendanceHandler.Matrix)
		attendance.PUT("/marks", attendanceHandler.Mark)
		attendance.DELETE("/marks", attendanceHandler.Unmark)
	}

	tuition := protected.Group("/tuition", staff)
	{
		tuition.GET("/ledger", tuitionHandler.Ledger)
		tuition.POST("/payments", tuitionHandler.CreatePayment)
		tuition.POST("/payments/:id/confirm", tuitionHandler.ConfirmPayment)
	}

	dashboard := protected.Group("/dashboard", staff)
	{
		dashboard.GET("/overview", dashboardHandler.Overview)
		dashboard.GET("/system", adminOnly, dashboardHandler.System)
	}

	exports := protected.Group("/exports", staff)
	{
		exports.GET("/tuition.csv", exportHandler.TuitionCSV)
		exports.GET("/tuition.pdf", exportHandler.TuitionPDF)
		exports.GET("/attendance.csv", exportHandler.AttendanceCSV)
		exports.POST("/jobs", exportHandler.SubmitJob)
		exports.GET("/jobs/:id", exportHandler.JobStatus)
	}

	// Downloads authenticate via the signed token itself.
	api.GET("/exports/downloads", exportHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
