package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mastercook/workshop-booking/internal/config"
	"github.com/mastercook/workshop-booking/internal/database"
	"github.com/mastercook/workshop-booking/internal/handler"
	"github.com/mastercook/workshop-booking/internal/middleware"
	"github.com/mastercook/workshop-booking/internal/payment"
	"github.com/mastercook/workshop-booking/internal/queue"
	"github.com/mastercook/workshop-booking/internal/repository"
	"github.com/mastercook/workshop-booking/internal/router"
	"github.com/mastercook/workshop-booking/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	if err := utils.InitLogger(cfg.Env); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer utils.SyncLogger()
	logger := utils.GetLogger()
	logger.Info("starting workshop booking service", zap.String("env", cfg.Env))

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database connected", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	// Redis backs rate limiting and the response cache; when it is down
	// both features degrade to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	workshopRepo := repository.NewWorkshopRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	instructorRepo := repository.NewInstructorRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	catalogHandler := handler.NewCatalogHandler(workshopRepo, categoryRepo, instructorRepo)
	reservationHandler := handler.NewReservationHandler(workshopRepo, reservationRepo, paymentRepo)
	paymentHandler := handler.NewPaymentHandler(workshopRepo, reservationRepo, paymentRepo, payment.NewSandbox())

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	rlCfg := config.LoadRateLimitConfig()
	if rlCfg.Enabled && rdb != nil {
		e.Use(middleware.NewTokenBucket(rlCfg, rdb))
	}

	var cacheMW []echo.MiddlewareFunc
	cacheCfg := config.LoadCacheConfig()
	if cacheCfg.Enabled && rdb != nil {
		cacheMW = append(cacheMW, middleware.NewRedisCache(cacheCfg, rdb))
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterCatalog(e, catalogHandler, cfg.JWTSecret, cacheMW...)
	router.RegisterReservations(e, reservationHandler, cfg.JWTSecret)
	router.RegisterPayments(e, paymentHandler, cfg.JWTSecret)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Background consumer appends confirmed reservations to logs/reservations.log.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			logger.Error("reservation consumer stopped", zap.Error(err))
		}
	}()

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
