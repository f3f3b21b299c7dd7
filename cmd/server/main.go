package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/roomtabling/internal/config"
	"github.com/limaJavier/roomtabling/internal/handler"
	"github.com/limaJavier/roomtabling/internal/logger"
	"github.com/limaJavier/roomtabling/internal/metrics"
	reqidmiddleware "github.com/limaJavier/roomtabling/internal/middleware/requestid"
	"github.com/limaJavier/roomtabling/internal/service"
)

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

	m := metrics.New()
	solveService := service.NewSolveService(cfg.Solver, m, logr)
	scheduleHandler := handler.NewScheduleHandler(solveService)
	healthHandler := handler.NewHealthHandler(m)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(m.GinMiddleware())

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", healthHandler.Prometheus)
	scheduleHandler.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("solver", cfg.Solver.Default),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
