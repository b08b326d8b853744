package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"lms-progress-service/internal/app"
	"lms-progress-service/internal/config"
	"lms-progress-service/internal/infra/memory"
	"lms-progress-service/internal/infra/postgres"
	redisinfra "lms-progress-service/internal/infra/redis"
	"lms-progress-service/internal/logger"
	transport "lms-progress-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progress server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var (
		store  app.Store
		loader memory.QuizLoader
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := postgres.NewStore(pool)
		store, loader = pg, pg
		log.Info("using postgres store")
	} else {
		mem := memory.NewStore()
		if err := seedDemoCatalog(mem); err != nil {
			return err
		}
		store, loader = mem, mem
		log.Warn("postgres url not configured, using in-memory store with demo catalog")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var feeds app.FeedRepository
	if redisClient != nil {
		feeds = redisinfra.NewFeedStore(redisClient, redisTTL)
	} else {
		feeds = memory.NewFeedStore()
	}

	agg := app.NewAggregator(log)
	ledger := app.NewLedger(store, log)
	if cfg.Activity.ListLimit > 0 {
		ledger = ledger.WithListLimit(cfg.Activity.ListLimit)
	}
	enrollments := app.NewEnrollmentService(store, agg, ledger, feeds, log)
	coursework := app.NewCourseworkService(store, quizRepo, ledger, enrollments, log)

	if cfg.Log.Mode == "prod" || cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.NewRouter(transport.RouterConfig{
		Log:               log,
		EnrollmentHandler: transport.NewEnrollmentHandler(log, enrollments),
		CourseworkHandler: transport.NewCourseworkHandler(log, coursework),
		ActivityHandler:   transport.NewActivityHandler(log, ledger),
		WSHandler:         transport.NewWSHandler(log, enrollments),
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting progress service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
