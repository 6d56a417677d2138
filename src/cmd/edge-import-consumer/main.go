package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/Rtoony/survey-data-system-sub001/src/adapters/kafka/consumers"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/registry"
	"github.com/Rtoony/survey-data-system-sub001/src/helper/env"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/kafka"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/postgres"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/redis"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
	"github.com/Rtoony/survey-data-system-sub001/src/services/edges"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting Edge Import Consumer with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newTypeRegistry,
			newReadWriteClient,
			newRedisClient,
			newKafkaClient,
			newEdgeQueryRepository,
			newCachedEdgeRepository,
			newEdgeWriteRepository,
			newRelationshipTypeRepository,
			newEdgeService,
			newEdgeImportConsumer,
		),

		// Invocations
		fx.Invoke(startConsumer),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start consumer application: %v", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down edge import consumer...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}

	log.Println("Edge import consumer shutdown complete")
}

func newLogger() *slog.Logger {
	logLevel := env.GetString("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func newTypeRegistry() *registry.EntityTypeRegistry {
	return registry.NewDefault()
}

func newReadWriteClient() (*postgres.ReadWriteClient, error) {
	dbReadHost := env.MustGetString("DB_READ_HOST")
	dbWriteHost := env.MustGetString("DB_WRITE_HOST")
	dbReadPort := env.GetString("DB_READ_PORT", "5432")
	dbWritePort := env.GetString("DB_WRITE_PORT", "5432")
	dbname := env.MustGetString("DB_NAME")
	dbUser := env.MustGetString("DB_USER")
	dbPassword := env.MustGetString("DB_PASSWORD")
	maxConnections := env.GetInt("DB_MAX_POOL_CONNECTIONS", 25)

	return postgres.NewReadWriteClient(dbReadHost, dbWriteHost, dbReadPort, dbWritePort, dbname, dbUser, dbPassword, maxConnections)
}

func newRedisClient() *redis.RedisClient {
	redisHosts := env.GetString("REDIS_HOSTS")
	if redisHosts == "" {
		return nil
	}

	redisPoolSize := env.GetInt("REDIS_POOL_SIZE", 50)
	redisDefaultTTLSeconds := env.GetInt("REDIS_DEFAULT_TTL_SECONDS", 120)
	redisDefaultTTL := time.Duration(redisDefaultTTLSeconds) * time.Second

	return redis.NewRedisClient(redisHosts, redisPoolSize, redisDefaultTTL)
}

func newKafkaClient() (*kafka.KafkaClient, error) {
	brokers := env.MustGetString("KAFKA_BROKERS")
	groupID := env.MustGetString("KAFKA_EDGE_IMPORT_CONSUMER_GROUP_ID")
	batchSize := env.MustGetInt("KAFKA_BATCH_SIZE")

	return kafka.NewKafkaClient(brokers, groupID, batchSize)
}

func newEdgeQueryRepository(readWriteClient *postgres.ReadWriteClient) *repositories.EdgeQueryRepository {
	return repositories.NewEdgeQueryRepository(readWriteClient.GetReadPool())
}

func newCachedEdgeRepository(
	edgeQueryRepository *repositories.EdgeQueryRepository,
	redisClient *redis.RedisClient,
) *repositories.CachedEdgeRepository {
	return repositories.NewCachedEdgeRepository(edgeQueryRepository, redisClient)
}

func newEdgeWriteRepository(
	readWriteClient *postgres.ReadWriteClient,
	cachedEdgeRepository *repositories.CachedEdgeRepository,
) *repositories.EdgeWriteRepository {
	return repositories.NewEdgeWriteRepository(readWriteClient.GetWritePool(), cachedEdgeRepository)
}

func newRelationshipTypeRepository(readWriteClient *postgres.ReadWriteClient) *repositories.RelationshipTypeRepository {
	return repositories.NewRelationshipTypeRepository(readWriteClient.GetReadPool())
}

func newEdgeService(
	typeRegistry *registry.EntityTypeRegistry,
	relationshipTypeRepository *repositories.RelationshipTypeRepository,
	edgeWriteRepository *repositories.EdgeWriteRepository,
	edgeQueryRepository *repositories.EdgeQueryRepository,
) *edges.EdgeService {
	return edges.NewEdgeService(typeRegistry, relationshipTypeRepository, edgeWriteRepository, edgeQueryRepository)
}

func newEdgeImportConsumer(
	logger *slog.Logger,
	edgeService *edges.EdgeService,
) *consumers.EdgeImportConsumer {
	return consumers.NewEdgeImportConsumer(logger, edgeService)
}

func startConsumer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
	importConsumer *consumers.EdgeImportConsumer,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			topic := env.MustGetString("KAFKA_EDGE_IMPORT_TOPIC")
			logger.Info("Starting edge import consumer", "topic", topic)

			go func() {
				if err := importConsumer.Start(ctx, kafkaClient, topic); err != nil {
					logger.Error("Consumer failed", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down Kafka client...")
			if err := kafkaClient.Close(); err != nil {
				logger.Error("Failed to close Kafka client", "error", err)
				return err
			}
			logger.Info("Kafka client shut down gracefully")
			return nil
		},
	})
}
