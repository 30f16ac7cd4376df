package main

import (
	"context"
	"log"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/campuskit/checkin/api/handler"
	"github.com/campuskit/checkin/internal/config"
	"github.com/campuskit/checkin/internal/infrastructure/monitor"
	pgInfra "github.com/campuskit/checkin/internal/infrastructure/postgres"
	redisInfra "github.com/campuskit/checkin/internal/infrastructure/redis"
	"github.com/campuskit/checkin/internal/middleware"
	"github.com/campuskit/checkin/internal/ratelimit"
	"github.com/campuskit/checkin/internal/router"
	"github.com/campuskit/checkin/internal/services"
	"github.com/campuskit/checkin/internal/services/lifecycle"
	"github.com/campuskit/checkin/pkg/httpcontext"
	"github.com/campuskit/checkin/pkg/logger"
	"github.com/campuskit/checkin/repository"
	boltRepo "github.com/campuskit/checkin/repository/bolt"
	memoryRepo "github.com/campuskit/checkin/repository/memory"
	pgRepo "github.com/campuskit/checkin/repository/postgres"
	redisRepo "github.com/campuskit/checkin/repository/redis"
	attendanceUC "github.com/campuskit/checkin/usecase/attendance"
	sessionUC "github.com/campuskit/checkin/usecase/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	// The student directory always lives in Postgres; the registry is the
	// system of record regardless of where attendance records land.
	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	studentDirectory := pgRepo.NewStudentDirectory(pool)

	var attendanceRepo repository.AttendanceRepository
	var boltStore *boltRepo.Store
	switch cfg.Stores.Attendance {
	case config.AttendanceStoreBolt:
		boltStore, err = boltRepo.Open(cfg.Bolt.Path)
		if err != nil {
			zapLogger.Fatal("failed to open bolt store", zap.Error(err))
		}
		manager.Register("bolt", func(ctx context.Context) error {
			return boltStore.Close()
		})
		attendanceRepo = boltStore
	default:
		attendanceRepo = pgRepo.NewAttendanceRepository(pool)
	}

	var sessionStore repository.SessionStore
	var redisClient *redislib.Client
	if cfg.NeedsRedis() {
		redisClient, err = redisInfra.NewClient(cfg.Redis)
		if err != nil {
			zapLogger.Fatal("redis connection failed", zap.Error(err))
		}
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
		sessionStore = redisRepo.NewSessionStore(redisClient)
	} else {
		sessionStore = memoryRepo.NewSessionStore()
	}

	mon := monitor.New(pool, redisClient, boltStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	limiter := ratelimit.New(cfg.Checkin.RateLimitWindow, cfg.Checkin.RateLimitMaxRequests)

	sweeper := services.NewSweeper(sessionStore, limiter, cfg.Checkin.SweepInterval, zapLogger)
	if err := sweeper.Start(); err != nil {
		zapLogger.Fatal("failed to start sweeper", zap.Error(err))
	}
	manager.Register("sweeper", func(ctx context.Context) error {
		sweeper.Stop(ctx)
		return nil
	})

	sessionUseCase := sessionUC.New(sessionStore, limiter, sessionUC.Config{
		TTL:            cfg.Checkin.SessionTTL,
		PollIntervalMs: cfg.Checkin.PollIntervalMs,
	}, zapLogger)

	attendanceUseCase := attendanceUC.New(studentDirectory, attendanceRepo, sessionStore, attendanceUC.Config{
		GeofenceRadiusMeters: cfg.Checkin.GeofenceRadiusMeters,
		PersistTimeout:       cfg.Checkin.PersistTimeout,
	}, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Session:    apiHandler.NewSessionHandler(sessionUseCase, ctxAdapter, zapLogger),
		Attendance: apiHandler.NewAttendanceHandler(attendanceUseCase, ctxAdapter, zapLogger),
		Health:     apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	facultyAuth := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, facultyAuth)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
