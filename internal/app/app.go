package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/internal/config"
	"github.com/fastygo/crm/internal/infrastructure/buffer"
	"github.com/fastygo/crm/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/crm/internal/infrastructure/postgres"
	"github.com/fastygo/crm/internal/infrastructure/push"
	redisInfra "github.com/fastygo/crm/internal/infrastructure/redis"
	"github.com/fastygo/crm/internal/services"
	"github.com/fastygo/crm/repository"
	"github.com/fastygo/crm/repository/postgres"
	redisRepo "github.com/fastygo/crm/repository/redis"
	"github.com/fastygo/crm/usecase"
	authUC "github.com/fastygo/crm/usecase/auth"
	clientUC "github.com/fastygo/crm/usecase/client"
	financeUC "github.com/fastygo/crm/usecase/finance"
	leadUC "github.com/fastygo/crm/usecase/lead"
	profileUC "github.com/fastygo/crm/usecase/profile"
	taskUC "github.com/fastygo/crm/usecase/task"
	teamUC "github.com/fastygo/crm/usecase/team"
)

// UseCases groups every application service.
type UseCases struct {
	Auth    *authUC.UseCase
	Profile *profileUC.UseCase
	Task    *taskUC.UseCase
	Lead    *leadUC.UseCase
	Client  *clientUC.UseCase
	Finance *financeUC.UseCase
	Team    *teamUC.UseCase
}

// App owns the infrastructure clients and the use cases built on them.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Pool     *pgxpool.Pool
	Redis    *goRedis.Client
	Store    *buffer.Store
	Monitor  *monitor.Monitor
	Outbox   *services.Outbox
	Feed     repository.ChangeFeed
	UseCases UseCases
}

// New connects to postgres, redis and the outbox file and builds the use cases.
// Close must be called when New succeeds.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	if cfg.Migrations.Enabled {
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	a.Redis, err = redisInfra.NewClient(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Store, err = buffer.Open(cfg.Buffer.Path, "outbox", cfg.Buffer.MaxSize)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Monitor = monitor.New(
		monitor.PostgresProbe(pool),
		monitor.RedisProbe(a.Redis),
		a.Store,
		10*time.Second,
		logger.Named("monitor"),
	)

	sender, err := push.NewSender(ctx, cfg.Push, logger.Named("push"))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Feed = redisRepo.NewChangeFeed(a.Redis, logger.Named("changefeed"))

	devices := postgres.NewDeviceTokenRepository(pool)
	a.Outbox, err = services.NewOutbox(a.Store, a.Monitor, devices, sender, a.Feed, logger.Named("outbox"), services.OutboxConfig{
		Schedule:   cfg.Buffer.DrainSchedule,
		BatchSize:  cfg.Buffer.BatchSize,
		MaxRetries: cfg.Buffer.MaxRetry,
		Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	bridge := services.NewOutboxBridge(a.Outbox)
	effects := usecase.Effects{Queue: bridge, Changes: bridge, Logger: logger.Named("effects")}

	users := postgres.NewUserRepository(pool)
	tasks := postgres.NewTaskRepository(pool)
	comments := postgres.NewTaskCommentRepository(pool)
	leads := postgres.NewLeadRepository(pool)
	clients := postgres.NewClientRepository(pool)
	income := postgres.NewIncomeRepository(pool)
	promotions := postgres.NewPromotionRepository(pool)
	joins := postgres.NewJoinRequestRepository(pool)
	invitations := postgres.NewInvitationRepository(pool)
	sessions := redisRepo.NewSessionRepository(a.Redis, cfg.JWT.SessionTTL)
	tx := postgres.NewTransactor(pool)

	var clock usecase.Clock
	rules := cfg.Rules

	a.UseCases = UseCases{
		Auth:    authUC.New(users, sessions, authUC.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}, clock, logger.Named("auth")),
		Profile: profileUC.New(users, devices, sessions, effects, clock, logger.Named("profile")),
		Task: taskUC.New(tasks, comments, users, tx, effects, clock, taskUC.Config{
			RevisionDue: rules.RevisionDue(),
			Reminders:   rules.ReminderDefaults(),
		}, logger.Named("task")),
		Lead: leadUC.New(leads, clients, users, tx, effects, clock, leadUC.Config{
			NoResponseRetry: rules.NoResponseRetry(),
		}, logger.Named("lead")),
		Client:  clientUC.New(clients, income, leads, users, tx, effects, clock, logger.Named("client")),
		Finance: financeUC.New(income, clients, users, clock, cfg.Finance.Location(), logger.Named("finance")),
		Team: teamUC.New(users, promotions, joins, invitations, tx, effects, clock, teamUC.Config{
			ThresholdMode: rules.ThresholdMode,
			InvitationTTL: rules.InvitationTTL,
		}, logger.Named("team")),
	}

	return a, nil
}

// Dispatcher registers the operator commands and queries.
func (a *App) Dispatcher() *usecase.Dispatcher {
	d := usecase.NewDispatcher()
	d.RegisterCommand(usecase.CommandSweepReminders, func(ctx context.Context, payload interface{}) (interface{}, error) {
		batch, _ := payload.(int)
		if batch <= 0 {
			batch = a.Config.Reminders.BatchSize
		}
		return a.UseCases.Task.SweepReminders(ctx, batch)
	})
	d.RegisterCommand(usecase.CommandDrainOutbox, func(ctx context.Context, _ interface{}) (interface{}, error) {
		return a.Outbox.Drain(ctx)
	})
	d.RegisterCommand(usecase.CommandReplayOutbox, func(ctx context.Context, _ interface{}) (interface{}, error) {
		return a.Outbox.Replay(ctx)
	})
	d.RegisterQuery(usecase.QueryOutboxDeadLetters, func(_ context.Context, params interface{}) (interface{}, error) {
		limit, _ := params.(int)
		return a.Outbox.DeadLetters(limit)
	})
	d.RegisterQuery(usecase.QueryFinanceSummary, func(ctx context.Context, params interface{}) (interface{}, error) {
		q, ok := params.(domain.ReportQuery)
		if !ok {
			return nil, domain.ErrInvalidPayload
		}
		return a.UseCases.Finance.Summarize(ctx, q)
	})
	d.RegisterQuery(usecase.QueryLeadsDue, func(ctx context.Context, _ interface{}) (interface{}, error) {
		return a.UseCases.Lead.DueLeads(ctx)
	})
	return d
}

// Close releases every client opened by New.
func (a *App) Close() error {
	var result error
	if a.Store != nil {
		result = errors.Join(result, a.Store.Close())
	}
	if a.Redis != nil {
		result = errors.Join(result, a.Redis.Close())
	}
	if a.Pool != nil {
		pgInfra.Close(a.Pool, a.Logger)
	}
	return result
}
