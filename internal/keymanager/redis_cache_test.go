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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestration-core/shared/types"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache, err := NewRedisCache(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisCache_IncrementUsageAccumulates(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()

	v, err := cache.IncrementUsage(ctx, "key-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = cache.IncrementUsage(ctx, "key-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestRedisCache_IncrementUsageSetsTTL(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	ctx := context.Background()

	_, err := cache.IncrementUsage(ctx, "key-1", time.Minute)
	require.NoError(t, err)

	ttl := mr.TTL(usageCacheKey("key-1"))
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisCache_ResetUsageClearsCounter(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	ctx := context.Background()

	cache.IncrementUsage(ctx, "key-1", time.Hour)
	err := cache.ResetUsage(ctx, "key-1")
	require.NoError(t, err)

	v, err := cache.IncrementUsage(ctx, "key-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestNewRedisCache_FailsOnUnreachableAddr(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := NewRedisCache(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func TestManager_RecordRequestMirrorsIntoCache(t *testing.T) {
	cache, mr := newTestRedisCache(t)
	m := NewManager(plaintextCrypto{}, nil, cache)

	key, err := m.AddKey(types.ServiceTavily, "primary", "secret", 100, types.ResetHour)
	require.NoError(t, err)

	m.RecordRequest(key.ID)
	m.RecordRequest(key.ID)

	n, err := mr.Get(usageCacheKey(key.ID))
	require.NoError(t, err)
	assert.Equal(t, "2", n)
}

func TestManager_ForceResetClearsCache(t *testing.T) {
	cache, _ := newTestRedisCache(t)
	m := NewManager(plaintextCrypto{}, nil, cache)

	key, err := m.AddKey(types.ServiceTavily, "primary", "secret", 100, types.ResetHour)
	require.NoError(t, err)
	m.RecordRequest(key.ID)

	require.NoError(t, m.ForceReset(key.ID))

	_, err = cache.client.Get(context.Background(), usageCacheKey(key.ID)).Result()
	assert.ErrorIs(t, err, redis.Nil)
}
