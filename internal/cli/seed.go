package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sysdesign-quiz-service/internal/catalog"
	"sysdesign-quiz-service/internal/config"
	"sysdesign-quiz-service/internal/domain"
	pgstore "sysdesign-quiz-service/internal/infra/postgres"
	redisstore "sysdesign-quiz-service/internal/infra/redis"
)

// NewSeedCmd writes the topic catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the topic catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if file != "" {
				cfg.Catalog.File = file
			}
			return runSeed(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog YAML to load instead of the built-in one")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	topics, err := loadTopics(cfg)
	if err != nil {
		return err
	}
	if err := runMigrations(ctx, cfg, logger); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pgstore.NewTopicStore(pool).SaveTopics(ctx, topics); err != nil {
		return err
	}
	// drop the cached catalog so running instances pick up the change
	if cfg.Redis.Addr != "" {
		client := newRedisClient(cfg)
		defer client.Close()
		if err := redisstore.NewTopicRepository(client, nil, 0).Invalidate(ctx); err != nil {
			logger.Warn("catalog cache not invalidated", zap.Error(err))
		}
	}
	logger.Info("catalog seeded", zap.Int("topics", len(topics)))
	return nil
}

// loadTopics reads catalog.file, or the built-in catalog, and validates it.
func loadTopics(cfg config.Config) ([]domain.Topic, error) {
	var (
		topics []domain.Topic
		err    error
	)
	if cfg.Catalog.File != "" {
		topics, err = catalog.LoadFile(cfg.Catalog.File)
	} else {
		topics, err = catalog.Builtin()
	}
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(topics, cfg.QuestionsPerQuiz()); err != nil {
		return nil, err
	}
	return topics, nil
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
