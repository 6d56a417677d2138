package repositories

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Rtoony/survey-data-system-sub001/src/domain/entities"
	"github.com/Rtoony/survey-data-system-sub001/src/infra/redis"
)

// CachedEdgeRepository decorates EdgeQueryRepository's project-wide adjacency
// read with a redis cache. Every cache entry is registered under its project's
// registry key so a write can invalidate all of a project's cached reads.
type CachedEdgeRepository struct {
	edgeQueryRepository *EdgeQueryRepository
	redisClient         *redis.RedisClient
}

type cacheableEdgeList struct {
	Edges []entities.Edge `json:"edges"`
}

func NewCachedEdgeRepository(
	edgeQueryRepository *EdgeQueryRepository,
	redisClient *redis.RedisClient,
) *CachedEdgeRepository {
	return &CachedEdgeRepository{
		edgeQueryRepository: edgeQueryRepository,
		redisClient:         redisClient,
	}
}

func (r *CachedEdgeRepository) ListByProject(ctx context.Context, projectID string) ([]entities.Edge, error) {
	if r.redisClient == nil {
		return r.edgeQueryRepository.ListByProject(ctx, projectID)
	}

	cacheKey := r.generateCacheKey(projectID)

	cached, found, err := r.getFromCache(ctx, cacheKey)
	if found && err == nil {
		return cached.Edges, nil
	}

	if err != nil {
		// A broken cache only costs the round trip to postgres.
		log.Printf("Cache error for key %s: %v", cacheKey, err)
	}

	edges, err := r.edgeQueryRepository.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}

	go func() {
		ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		r.setInCache(ctxWithTimeout, cacheKey, projectID, edges)
	}()

	return edges, nil
}

func (r *CachedEdgeRepository) generateCacheKey(projectID string) string {
	hash := md5.Sum([]byte("edges:project:" + projectID))
	return fmt.Sprintf("graph:edges:%x", hash)
}

func registryKeyForProject(projectID string) string {
	return "registry:project:" + projectID
}

func (r *CachedEdgeRepository) getFromCache(ctx context.Context, cacheKey string) (*cacheableEdgeList, bool, error) {
	cachedJSON, found, err := r.redisClient.GetKey(ctx, cacheKey)
	if !found || err != nil {
		return nil, found, err
	}

	var result cacheableEdgeList
	if err := json.Unmarshal([]byte(cachedJSON), &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached edges: %w", err)
	}

	return &result, true, nil
}

func (r *CachedEdgeRepository) setInCache(ctx context.Context, cacheKey, projectID string, edges []entities.Edge) {
	dataJSON, err := json.Marshal(cacheableEdgeList{Edges: edges})
	if err != nil {
		log.Printf("Failed to marshal cache data for key %s: %v", cacheKey, err)
		return
	}

	err = r.redisClient.SetWithRegistry(ctx, cacheKey, string(dataJSON), []string{registryKeyForProject(projectID)})
	if err != nil {
		log.Printf("Failed to set cache with registry for key %s: %v", cacheKey, err)
	}
}

// InvalidateProject drops every cached read registered for the project.
func (r *CachedEdgeRepository) InvalidateProject(ctx context.Context, projectID string) error {
	if r.redisClient == nil {
		return nil
	}

	registryResults, err := r.redisClient.GetSetMembers(ctx, []string{registryKeyForProject(projectID)})
	if err != nil {
		return fmt.Errorf("failed to get registry data: %w", err)
	}

	keysToDelete := make([]string, 0, len(registryResults)+1)
	for registryKey, relatedKeys := range registryResults {
		keysToDelete = append(keysToDelete, registryKey)
		keysToDelete = append(keysToDelete, relatedKeys...)
	}

	if len(keysToDelete) == 0 {
		return nil
	}

	return r.redisClient.DeleteKeys(ctx, keysToDelete)
}
