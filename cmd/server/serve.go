package main

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "os/signal"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/iliyamo/exam-reservation/internal/auth"
    "github.com/iliyamo/exam-reservation/internal/config"
    "github.com/iliyamo/exam-reservation/internal/database"
    "github.com/iliyamo/exam-reservation/internal/handler"
    "github.com/iliyamo/exam-reservation/internal/metrics"
    "github.com/iliyamo/exam-reservation/internal/middleware"
    "github.com/iliyamo/exam-reservation/internal/model"
    "github.com/iliyamo/exam-reservation/internal/queue"
    "github.com/iliyamo/exam-reservation/internal/repository"
    "github.com/iliyamo/exam-reservation/internal/router"
    "github.com/iliyamo/exam-reservation/internal/service"
)

var serveFlags = struct {
    migrate bool
}{}

func serveCommand() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "serve",
        Short: "Run the HTTP API",
        RunE:  serveRun,
    }
    cmd.Flags().BoolVar(&serveFlags.migrate, "migrate", false, "apply the schema before serving")
    return cmd
}

func serveRun(cmd *cobra.Command, _ []string) error {
    cfg, logger, err := loadConfig()
    if err != nil {
        return err
    }
    policy, err := service.ParseCapacityPolicy(cfg.CapacityPolicy)
    if err != nil {
        return err
    }

    db, err := database.Open(dbOptions(cfg))
    if err != nil {
        return fmt.Errorf("open database: %w", err)
    }
    defer db.Close()

    ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    if serveFlags.migrate || cfg.DBDriver == database.DriverSQLite {
        if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
            return err
        }
    }

    // Redis backs rate limiting and caching; without it both are skipped.
    redisCfg, err := config.LoadRedisConfig()
    if err != nil {
        return fmt.Errorf("redis config: %w", err)
    }
    rdb := config.NewRedisClient(redisCfg)
    if rdb != nil {
        defer rdb.Close()
    } else if redisCfg.Enabled {
        logger.Warn("redis unreachable, rate limiting and caching disabled", "addr", redisCfg.Address())
    }

    var publisher queue.Publisher = queue.NopPublisher{}
    if cfg.AMQPEnabled {
        publisher = queue.NewAMQPPublisher(cfg.AMQPURL, cfg.EventQueue, logger)
    }

    // committed reservation and exam changes invalidate cached searches
    searchCache := middleware.NewSearchCache(config.LoadCacheConfig(), rdb, logger)
    var invalidator service.SearchInvalidator
    if searchCache != nil {
        invalidator = searchCache
    }

    dialect := repository.Dialect(cfg.DBDriver)
    m := metrics.New()
    tokens := auth.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTTLMin)*time.Minute)
    members := repository.NewMemberRepo(db)
    admins := repository.NewAdminRepo(db)
    exams := repository.NewExamRepo(db, dialect)

    reservations := service.NewReservationService(service.ReservationDeps{
        DB:           db,
        Exams:        exams,
        Reservations: repository.NewReservationRepo(db, dialect),
        Members:      members,
        Admins:       admins,
        Policy:       policy,
        Publisher:    publisher,
        SearchCache:  invalidator,
        Metrics:      m,
        Logger:       logger,
    })

    e := router.New(router.Deps{
        Logger:       logger,
        Metrics:      m,
        DB:           db,
        Tokens:       tokens,
        Members:      handler.NewAuthHandler(service.NewIdentityService(model.RoleMember, members, tokens, cfg.BcryptCost, logger), logger),
        Admins:       handler.NewAuthHandler(service.NewIdentityService(model.RoleAdmin, admins, tokens, cfg.BcryptCost, logger), logger),
        Exams:        handler.NewExamHandler(service.NewExamService(exams, admins, cfg.SearchLeadTime, invalidator, m, logger), logger),
        Reservations: handler.NewReservationHandler(reservations, logger),
        RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, tokens, logger),
        Cache:        searchCache.Middleware(),
    })

    addr := ":" + cfg.Port
    errCh := make(chan error, 1)
    go func() {
        logger.Info("listening", "addr", addr, "env", cfg.Env, "driver", cfg.DBDriver, "capacity_policy", string(policy))
        errCh <- e.Start(addr)
    }()

    select {
    case err := <-errCh:
        if !errors.Is(err, http.ErrServerClosed) {
            return err
        }
        return nil
    case <-ctx.Done():
    }

    logger.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    return e.Shutdown(shutdownCtx)
}
