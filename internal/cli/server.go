package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sysdesign-quiz-service/internal/app"
	"sysdesign-quiz-service/internal/catalog"
	"sysdesign-quiz-service/internal/config"
	"sysdesign-quiz-service/internal/domain"
	"sysdesign-quiz-service/internal/infra/memory"
	pgstore "sysdesign-quiz-service/internal/infra/postgres"
	redisstore "sysdesign-quiz-service/internal/infra/redis"
	"sysdesign-quiz-service/internal/logging"
	"sysdesign-quiz-service/internal/metrics"
	transport "sysdesign-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	today := func() domain.Day { return domain.Today(time.Now(), loc) }

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
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
		redisClient = newRedisClient(cfg)
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.TopicLoader
	if pool != nil {
		loader = catalog.NewValidatingLoader(pgstore.NewTopicStore(pool), cfg.QuestionsPerQuiz())
	} else {
		topics, err := loadTopics(cfg)
		if err != nil {
			return err
		}
		loader = memory.NewStaticTopicLoader(topics)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var topicRepo app.TopicRepository
	if redisClient != nil {
		topicRepo = redisstore.NewTopicRepository(redisClient, loader, catalogTTL)
	} else {
		topicRepo = memory.NewTopicRepository(loader, catalogTTL)
	}

	var users app.UserStore
	switch {
	case pool != nil:
		users = pgstore.NewUserStore(pool)
	case redisClient != nil:
		users = redisstore.NewUserStore(redisClient)
	default:
		users = memory.NewUserStore()
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return err
	}

	topics := app.NewCatalog(topicRepo)
	streaks := app.NewStreakService(users, topics, app.StreakConfig{
		QuestionsPerQuiz: cfg.QuestionsPerQuiz(),
		Logger:           logger.Named("streaks"),
		Metrics:          recorder,
	})
	quizzes := app.NewQuizService(sessions, topics, streaks, logger.Named("quiz"), recorder)

	router := transport.NewRouter(
		transport.NewAPIHandler(streaks, topics, today, logger.Named("http")),
		transport.NewWSHandler(quizzes, today, logger.Named("ws")),
		metrics.Handler(registry),
		recorder.Instrument,
	)

	// no WriteTimeout: websocket quiz sessions outlive any fixed write deadline
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service",
			zap.String("port", finalPort),
			zap.Bool("postgres", pool != nil),
			zap.Bool("redis", redisClient != nil),
			zap.String("timezone", loc.String()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadConfig reads the config file and builds the logger it describes.
func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}
