package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushub/timetable-api/api/swagger"
	"github.com/campushub/timetable-api/internal/handler"
	"github.com/campushub/timetable-api/internal/middleware"
	"github.com/campushub/timetable-api/internal/models"
	"github.com/campushub/timetable-api/internal/repository"
	"github.com/campushub/timetable-api/internal/service"
	"github.com/campushub/timetable-api/internal/timetable"
	"github.com/campushub/timetable-api/pkg/cache"
	"github.com/campushub/timetable-api/pkg/config"
	"github.com/campushub/timetable-api/pkg/database"
	"github.com/campushub/timetable-api/pkg/logger"
	corsmiddleware "github.com/campushub/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushub/timetable-api/pkg/middleware/requestid"
)

// @title Campus Timetable API
// @version 1.0.0
// @description Conflict detection, timetable consolidation and room reservations
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	// A cache repository with a nil client behaves as a disabled cache.
	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Timetable.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, timetable cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	blockRepo := repository.NewRecurringBlockRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	groupRepo := repository.NewCourseGroupRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	labRepo := repository.NewLabEnrollmentRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	builder := timetable.NewBuilder(timetable.BuilderConfig{
		DisplayFloor: mustClock(cfg.Timetable.DisplayFloor),
		DisplayCeil:  mustClock(cfg.Timetable.DisplayCeil),
		MinRowSpan:   cfg.Timetable.MinRowSpanMin,
	})

	conflictSvc := service.NewConflictService(blockRepo, reservationRepo, groupRepo, cfg.Reservations.HorizonDays, logr)
	timetableSvc := service.NewTimetableService(blockRepo, reservationRepo, groupRepo, cacheRepo, metricsSvc, builder, cfg.Timetable.CacheTTL, logr)
	reservationSvc := service.NewReservationService(reservationRepo, roomRepo, conflictSvc, timetableSvc, cfg.Reservations.WeeklyQuota, validate, logr)
	scheduleSvc := service.NewScheduleService(blockRepo, groupRepo, conflictSvc, timetableSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(labRepo, groupRepo, blockRepo, conflictSvc, timetableSvc, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, logr)

	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	reservationHandler := handler.NewReservationHandler(reservationSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))
	{
		api.GET("/students/:id/timetable", timetableHandler.Student)
		api.GET("/teachers/:id/timetable", timetableHandler.Teacher)

		api.GET("/rooms", roomHandler.List)
		api.GET("/rooms/:id", roomHandler.Get)
		api.GET("/rooms/:id/timetable", timetableHandler.Room)

		api.GET("/groups/:id/blocks", scheduleHandler.GetBlocks)
		api.PUT("/groups/:id/blocks", scheduleHandler.ReplaceBlocks)

		api.GET("/enrollments/labs", enrollmentHandler.List)
		api.GET("/enrollments/labs/available", enrollmentHandler.Availability)
		api.POST("/enrollments/labs", enrollmentHandler.Enroll)

		api.GET("/reservations", reservationHandler.List)
		api.POST("/reservations", reservationHandler.Create)
		api.DELETE("/reservations/:id", reservationHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func mustClock(raw string) models.ClockTime {
	t, err := models.ParseClockTime(raw)
	if err != nil {
		log.Fatalf("invalid clock time %q: %v", raw, err)
	}
	return t
}
