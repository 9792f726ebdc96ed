// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package keymanager

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"research-orchestration-core/shared/logger"
)

// RedisCache fronts the quota admission path with an atomic counter
// so concurrent admission checks under load do not serialize purely
// on the store's in-process RWMutex, generalizing the connection and
// health-check shape of a plain redis connector to this manager's one
// specific hot path: usage_count increments.
type RedisCache struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCache connects to addr (host:port) and returns a ready
// cache, or an error if the initial ping fails.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis cache: ping %s: %w", addr, err)
	}
	return &RedisCache{client: client, log: logger.New("keymanager.rediscache")}, nil
}

func usageCacheKey(keyID string) string {
	return "keymanager:usage:" + keyID
}

// IncrementUsage atomically increments the cached usage counter for a
// key and returns its new value, refreshing a TTL matching the reset
// window on every increment so an idle counter expires on its own.
func (c *RedisCache) IncrementUsage(ctx context.Context, keyID string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, usageCacheKey(keyID))
	pipe.Expire(ctx, usageCacheKey(keyID), window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis cache: increment usage: %w", err)
	}
	return incr.Val(), nil
}

// ResetUsage clears the cached counter for a key, used by ForceReset
// and by the reset-period rollover.
func (c *RedisCache) ResetUsage(ctx context.Context, keyID string) error {
	if err := c.client.Del(ctx, usageCacheKey(keyID)).Err(); err != nil {
		return fmt.Errorf("redis cache: reset usage: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
