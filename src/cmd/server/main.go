package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	httpadapter "github.com/Rtoony/survey-data-system-sub001/src/adapters/http"
	"github.com/Rtoony/survey-data-system-sub001/src/domain/registry"
	"github.com/Rtoony/survey-data-system-sub001/src/helper/env"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/postgres"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/redis"
	"github.com/Rtoony/survey-data-system-sub001/src/repositories"
	"github.com/Rtoony/survey-data-system-sub001/src/services/analytics"
	"github.com/Rtoony/survey-data-system-sub001/src/services/edges"
	"github.com/Rtoony/survey-data-system-sub001/src/services/sets"
	"github.com/Rtoony/survey-data-system-sub001/src/services/traversal"
	"github.com/Rtoony/survey-data-system-sub001/src/services/validation"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting API server with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newTypeRegistry,
			newSQLClient,
			newRedisClient,
			newEdgeQueryRepository,
			newCachedEdgeRepository,
			newEdgeWriteRepository,
			newRelationshipTypeRepository,
			newEntityStoreRepository,
			newSchemaCache,
			newRuleRepository,
			newViolationRepository,
			newSetRepository,
			newEdgeService,
			newTraversalService,
			newRuleEngine,
			newSetService,
			newSyncChecker,
			newHealthService,
			newServer,
		),

		// Invocations
		fx.Invoke(registerServerHooks),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	<-app.Done()
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

func newSQLClient() (*pgxpool.Pool, error) {
	dbHost := env.MustGetString("DB_HOST")
	dbPort := env.GetString("DB_PORT", "5432")
	dbname := env.MustGetString("DB_NAME")
	dbUser := env.MustGetString("DB_USER")
	dbPassword := env.MustGetString("DB_PASSWORD")
	maxConnections := env.GetInt("DB_MAX_POOL_CONNECTIONS", 25)

	return postgres.NewPostgresClient(dbHost, dbPort, dbname, dbUser, dbPassword, maxConnections)
}

// newRedisClient is optional wiring: without REDIS_HOSTS the cached repository
// falls through to postgres on every read.
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

func newEdgeQueryRepository(pool *pgxpool.Pool) *repositories.EdgeQueryRepository {
	return repositories.NewEdgeQueryRepository(pool)
}

func newCachedEdgeRepository(
	edgeQueryRepository *repositories.EdgeQueryRepository,
	redisClient *redis.RedisClient,
) *repositories.CachedEdgeRepository {
	return repositories.NewCachedEdgeRepository(edgeQueryRepository, redisClient)
}

func newEdgeWriteRepository(
	pool *pgxpool.Pool,
	cachedEdgeRepository *repositories.CachedEdgeRepository,
) *repositories.EdgeWriteRepository {
	return repositories.NewEdgeWriteRepository(pool, cachedEdgeRepository)
}

func newRelationshipTypeRepository(pool *pgxpool.Pool) *repositories.RelationshipTypeRepository {
	return repositories.NewRelationshipTypeRepository(pool)
}

func newEntityStoreRepository(pool *pgxpool.Pool, typeRegistry *registry.EntityTypeRegistry) *repositories.EntityStoreRepository {
	return repositories.NewEntityStoreRepository(pool, typeRegistry)
}

func newSchemaCache(entityStore *repositories.EntityStoreRepository) *repositories.SchemaCache {
	return repositories.NewSchemaCache(entityStore)
}

func newRuleRepository(pool *pgxpool.Pool) *repositories.ValidationRuleRepository {
	return repositories.NewValidationRuleRepository(pool)
}

func newViolationRepository(pool *pgxpool.Pool) *repositories.ValidationViolationRepository {
	return repositories.NewValidationViolationRepository(pool)
}

func newSetRepository(pool *pgxpool.Pool) *repositories.SetRepository {
	return repositories.NewSetRepository(pool)
}

func newEdgeService(
	typeRegistry *registry.EntityTypeRegistry,
	relationshipTypeRepository *repositories.RelationshipTypeRepository,
	edgeWriteRepository *repositories.EdgeWriteRepository,
	edgeQueryRepository *repositories.EdgeQueryRepository,
) *edges.EdgeService {
	return edges.NewEdgeService(typeRegistry, relationshipTypeRepository, edgeWriteRepository, edgeQueryRepository)
}

func newTraversalService(cachedEdgeRepository *repositories.CachedEdgeRepository) *traversal.TraversalService {
	return traversal.NewTraversalService(cachedEdgeRepository)
}

func newRuleEngine(
	ruleRepository *repositories.ValidationRuleRepository,
	violationRepository *repositories.ValidationViolationRepository,
	cachedEdgeRepository *repositories.CachedEdgeRepository,
) *validation.RuleEngine {
	return validation.NewRuleEngine(ruleRepository, violationRepository, cachedEdgeRepository)
}

func newSetService(
	typeRegistry *registry.EntityTypeRegistry,
	setRepository *repositories.SetRepository,
	schemaCache *repositories.SchemaCache,
) *sets.SetService {
	return sets.NewSetService(typeRegistry, setRepository, schemaCache)
}

func newSyncChecker(
	setRepository *repositories.SetRepository,
	entityStore *repositories.EntityStoreRepository,
	schemaCache *repositories.SchemaCache,
) *sets.SyncChecker {
	return sets.NewSyncChecker(setRepository, entityStore, schemaCache)
}

func newHealthService(
	traversalService *traversal.TraversalService,
	violationRepository *repositories.ValidationViolationRepository,
	setRepository *repositories.SetRepository,
) *analytics.HealthService {
	return analytics.NewHealthService(traversalService, violationRepository, setRepository)
}

func newServer(
	logger *slog.Logger,
	edgeService *edges.EdgeService,
	traversalService *traversal.TraversalService,
	ruleEngine *validation.RuleEngine,
	setService *sets.SetService,
	syncChecker *sets.SyncChecker,
	healthService *analytics.HealthService,
) *httpadapter.Server {
	port := env.GetInt("SERVER_PORT", 8888)

	return httpadapter.NewServer(logger, port, edgeService, traversalService, ruleEngine, setService, syncChecker, healthService)
}

func registerServerHooks(lc fx.Lifecycle, srv *httpadapter.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			log.Println("Shutting down server...")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Server forced to shutdown: %v", err)
				return err
			}
			log.Println("Server exited gracefully")
			return nil
		},
	})
}
