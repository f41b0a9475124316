package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/schoolpad/schoolpad-api/api/swagger"
	"github.com/schoolpad/schoolpad-api/internal/handler"
	"github.com/schoolpad/schoolpad-api/internal/middleware"
	"github.com/schoolpad/schoolpad-api/internal/models"
	"github.com/schoolpad/schoolpad-api/internal/repository"
	"github.com/schoolpad/schoolpad-api/internal/service"
	"github.com/schoolpad/schoolpad-api/pkg/cache"
	"github.com/schoolpad/schoolpad-api/pkg/config"
	"github.com/schoolpad/schoolpad-api/pkg/database"
	"github.com/schoolpad/schoolpad-api/pkg/jobs"
	"github.com/schoolpad/schoolpad-api/pkg/logger"
	corsmiddleware "github.com/schoolpad/schoolpad-api/pkg/middleware/cors"
	reqidmiddleware "github.com/schoolpad/schoolpad-api/pkg/middleware/requestid"
	"github.com/schoolpad/schoolpad-api/pkg/storage"
)

// @title SchoolPad API
// @version 1.0.0
// @description School administration portal: results, CBT exams, attendance and ID cards
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	schoolRepo := repository.NewSchoolRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	resultRepo := repository.NewResultRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	examLogRepo := repository.NewExamLogRepository(db)

	identitySvc := service.NewIdentityService(schoolRepo, adminRepo, teacherRepo, validate, logr, service.IdentityConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
	})
	schoolSvc := service.NewSchoolService(schoolRepo, adminRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	resultSvc := service.NewResultService(resultRepo, identitySvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, validate, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cbtSvc *service.CBTService
	if cfg.CBT.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck

		answerCache := service.NewRedisAnswerCache(redisClient, 4*time.Hour+cfg.CBT.AnswerTTLSlack)
		cbtSvc = service.NewCBTService(assessmentRepo, attemptRepo, examLogRepo, studentRepo,
			identitySvc, resultSvc, answerCache, validate, logr)

		go runDeadlineSweeper(rootCtx, cbtSvc, metricsSvc, cfg.CBT.SweepInterval, logr)
	}

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

		var remarks service.RemarkGenerator = service.StaticRemarkGenerator{}
		if cfg.Remarks.Enabled && cfg.Remarks.BaseURL != "" {
			remarks = service.NewHTTPRemarkGenerator(cfg.Remarks.BaseURL, cfg.Remarks.APIKey, cfg.Remarks.Timeout, logr)
		}

		exportSvc = service.NewExportService(resultSvc, schoolSvc, studentSvc, attendanceSvc,
			assessmentRepo, examLogRepo, remarks, store, signer, logr, jobs.QueueConfig{
				Workers:    cfg.Exports.WorkerConcurrency,
				MaxRetries: cfg.Exports.WorkerRetries,
				Logger:     logr,
			})
		exportSvc.SetMetrics(metricsSvc)
		exportSvc.Start(rootCtx)
		defer exportSvc.Stop()

		go runStorageSweeper(rootCtx, store, cfg.Exports.SignedURLTTL, logr)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, identitySvc, metricsSvc,
		handler.NewAuthHandler(identitySvc),
		handler.NewSchoolHandler(schoolSvc),
		handler.NewStudentHandler(studentSvc),
		handler.NewTeacherHandler(teacherSvc),
		handler.NewResultHandler(resultSvc),
		handler.NewAttendanceHandler(attendanceSvc, metricsSvc),
		cbtSvc, exportSvc)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}

func registerRoutes(r *gin.Engine, cfg *config.Config, identitySvc *service.IdentityService,
	metricsSvc *service.MetricsService, auth *handler.AuthHandler, schools *handler.SchoolHandler,
	students *handler.StudentHandler, teachers *handler.TeacherHandler, results *handler.ResultHandler,
	attendance *handler.AttendanceHandler, cbtSvc *service.CBTService, exportSvc *service.ExportService) {

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", auth.Login)
	api.POST("/auth/super-admin", auth.SuperAdmin)
	api.POST("/schools", schools.Register)
	api.POST("/scan", students.ResolveScan)

	var cbt *handler.CBTHandler
	if cbtSvc != nil {
		cbt = handler.NewCBTHandler(cbtSvc, metricsSvc)
		api.POST("/cbt/redeem", cbt.Redeem)
		api.POST("/cbt/attempts/:attemptId/answers", cbt.CaptureAnswer)
		api.POST("/cbt/attempts/:attemptId/submit", cbt.Submit)
	}

	var exports *handler.ExportHandler
	if exportSvc != nil {
		exports = handler.NewExportHandler(exportSvc)
		api.GET("/exports/download", exports.Download)
	}

	protected := api.Group("", middleware.JWT(identitySvc))

	protected.GET("/schools", middleware.RequireRoles(), schools.List)
	protected.POST("/super-admins", middleware.RequireRoles(), schools.CreateSuperAdmin)

	if exports != nil {
		protected.GET("/exports/:jobId", exports.Status)
	}

	school := protected.Group("/schools/:schoolId", middleware.SchoolScope())
	admin := school.Group("", middleware.RequireRoles(models.RoleMasterAdmin, models.RoleSubAdmin))
	master := school.Group("", middleware.RequireRoles(models.RoleMasterAdmin))

	admin.GET("", schools.Get)
	admin.PUT("", schools.Update)
	master.PUT("/access-code", schools.ChangeAccessCode)
	master.POST("/admins", schools.CreateSubAdmin)
	master.GET("/admins", schools.ListSubAdmins)
	master.DELETE("/admins/:adminId", schools.RevokeSubAdmin)

	admin.POST("/students", students.Register)
	admin.GET("/students", students.List)
	admin.GET("/students/:admissionNo", students.Get)
	admin.PUT("/students/:generatedId", students.Update)

	admin.POST("/teachers", teachers.Register)
	admin.GET("/teachers", teachers.List)

	admin.POST("/results", results.Save)
	admin.GET("/results/:admissionNo", results.Get)
	admin.GET("/results/:admissionNo/history", results.ListByStudent)

	admin.POST("/attendance/clock-in", attendance.ClockIn)
	admin.POST("/attendance/clock-out", attendance.ClockOut)
	admin.GET("/attendance", attendance.List)

	if cbt != nil {
		admin.POST("/assessments", cbt.CreateAssessment)
		admin.GET("/assessments", cbt.ListAssessments)
		admin.POST("/assessments/:examCode/close", cbt.CloseAssessment)
		admin.GET("/exam-logs", cbt.ListLogs)
	}

	if exports != nil {
		admin.POST("/exports/result-sheet", exports.ResultSheet)
		admin.POST("/exports/id-card", exports.IDCard)
		admin.POST("/exports/attendance", exports.Attendance)
		admin.POST("/exports/exam-logs", exports.ExamLog)
		admin.POST("/exports/question-paper", exports.QuestionPaper)
	}
}

// runStorageSweeper deletes export files once their download links have
// expired.
func runStorageSweeper(ctx context.Context, store *storage.LocalStorage, ttl time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.Sweep(ttl)
			if err != nil {
				logr.Sugar().Errorw("export storage sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logr.Sugar().Infow("swept expired export files", "removed", removed)
			}
		}
	}
}

func runDeadlineSweeper(ctx context.Context, cbtSvc *service.CBTService, metricsSvc *service.MetricsService,
	interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := cbtSvc.SweepExpired(ctx)
			if err != nil {
				logr.Sugar().Errorw("deadline sweep failed", "error", err)
				continue
			}
			metricsSvc.CountAttemptsSwept(swept)
		}
	}
}
