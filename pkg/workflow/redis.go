package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/panshift/panshift/pkg/util"
)

const redisKeyPrefix = "panshift:workflow:"

// RedisStore keeps workflow state in redis so several operator hosts can
// share one deployment's progress. States are stored as JSON under
// "panshift:workflow:<deployment>".
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore creates a store against the given redis address. A bare
// host gets the default redis port appended.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr: util.HostPort(addr, 6379),
		}),
		ctx: context.Background(),
	}
}

// Connect tests the connection.
func (r *RedisStore) Connect() error {
	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("workflow: connect redis: %w", err)
	}
	return nil
}

// Close closes the connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) key(deployment string) string {
	return redisKeyPrefix + deployment
}

// Save writes the state as JSON. No expiry: deployment state lives until
// Remove.
func (r *RedisStore) Save(state *State) error {
	if state == nil || state.Deployment == "" {
		return fmt.Errorf("workflow: save: state has no deployment name")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("workflow: marshal state: %w", err)
	}
	if err := r.client.Set(r.ctx, r.key(state.Deployment), data, 0).Err(); err != nil {
		return fmt.Errorf("workflow: write state to redis: %w", err)
	}
	return nil
}

// Load reads the state for a deployment. Missing state is not an error.
func (r *RedisStore) Load(deployment string) (*State, error) {
	data, err := r.client.Get(r.ctx, r.key(deployment)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("workflow: read state from redis: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("workflow: parse state: %w", err)
	}
	return &state, nil
}

// Remove deletes the persisted state for a deployment.
func (r *RedisStore) Remove(deployment string) error {
	if err := r.client.Del(r.ctx, r.key(deployment)).Err(); err != nil {
		return fmt.Errorf("workflow: remove state from redis: %w", err)
	}
	return nil
}

// List returns the deployments with persisted state, sorted by name.
// Iterates with cursor-based SCAN rather than the blocking KEYS command.
func (r *RedisStore) List() ([]string, error) {
	var cursor uint64
	var names []string
	for {
		batch, next, err := r.client.Scan(r.ctx, cursor, redisKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("workflow: scan redis keys: %w", err)
		}
		for _, key := range batch {
			names = append(names, strings.TrimPrefix(key, redisKeyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(names)
	return names, nil
}
