package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/crm/api/handler"
	"github.com/fastygo/crm/internal/app"
	"github.com/fastygo/crm/internal/config"
	"github.com/fastygo/crm/internal/middleware"
	"github.com/fastygo/crm/internal/router"
	"github.com/fastygo/crm/internal/services"
	"github.com/fastygo/crm/internal/services/lifecycle"
	"github.com/fastygo/crm/pkg/httpcontext"
	"github.com/fastygo/crm/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		App:      cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, stop := manager.SignalContext(context.Background())
	defer stop()

	application, err := app.New(appCtx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("startup failed", zap.Error(err))
	}
	manager.Register("infrastructure", func(ctx context.Context) error {
		return application.Close()
	})

	application.Monitor.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		application.Monitor.Stop()
		return nil
	})

	manager.Run("outbox", application.Outbox)

	uc := application.UseCases
	if cfg.Reminders.Enabled {
		reminders, err := services.NewReminderScheduler(uc.Task, services.ReminderConfig{
			Schedule:  cfg.Reminders.Schedule,
			BatchSize: cfg.Reminders.BatchSize,
		}, zapLogger.Named("reminders"))
		if err != nil {
			zapLogger.Fatal("reminder scheduler", zap.Error(err))
		}
		manager.Run("reminders", reminders)
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(uc.Auth, ctxAdapter, zapLogger, cfg.JWT.SessionTTL),
		Profile: apiHandler.NewProfileHandler(uc.Profile, ctxAdapter, zapLogger),
		Task:    apiHandler.NewTaskHandler(uc.Task, ctxAdapter, zapLogger),
		Lead:    apiHandler.NewLeadHandler(uc.Lead, ctxAdapter, zapLogger),
		Client:  apiHandler.NewClientHandler(uc.Client, ctxAdapter, zapLogger),
		Finance: apiHandler.NewFinanceHandler(uc.Finance, ctxAdapter, zapLogger),
		Team:    apiHandler.NewTeamHandler(uc.Team, ctxAdapter, zapLogger),
		Changes: apiHandler.NewChangesHandler(application.Feed, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(application.Monitor, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(middleware.AuthConfig{
		Secret:  cfg.JWT.Secret,
		Issuer:  cfg.JWT.Issuer,
		Timeout: cfg.Context.RequestTimeout,
	}, uc.Auth, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
