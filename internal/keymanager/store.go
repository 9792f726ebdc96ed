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

// Package keymanager is the API-key manager (C2): rate limiting and
// quota enforcement, a five-state key health machine, priority
// scoring, and five key-selection strategies.
package keymanager

import (
	"strings"
	"sync"
	"time"

	"research-orchestration-core/shared/types"
)

// Crypto is the opaque encryption collaborator. The manager never
// interprets the encrypted blob; it only ever round-trips it through
// Encrypt/Decrypt.
type Crypto interface {
	Encrypt(plaintext string) ([]byte, error)
	Decrypt(ciphertext []byte) (string, error)
}

// Persistence is the write-through collaborator keys are persisted
// through. The manager holds keys in memory and never reads this
// interface back except at startup.
type Persistence interface {
	StoreKey(key *types.ApiKey) error
	DeleteKey(id string) error
	GetAllKeys() ([]*types.ApiKey, error)
}

// store holds every key and its metrics in memory under one RWMutex,
// per the single-writer-at-a-time shared-resource policy.
type store struct {
	mu      sync.RWMutex
	keys    map[string]*types.ApiKey
	metrics map[string]*types.KeyPerformanceMetrics
	alerts  map[string][]RateLimitAlert
}

func newStore() *store {
	return &store{
		keys:    make(map[string]*types.ApiKey),
		metrics: make(map[string]*types.KeyPerformanceMetrics),
		alerts:  make(map[string][]RateLimitAlert),
	}
}

func (s *store) put(key *types.ApiKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = key
	if _, ok := s.metrics[key.ID]; !ok {
		s.metrics[key.ID] = &types.KeyPerformanceMetrics{KeyID: key.ID, Health: types.HealthHealthy, PriorityScore: 100}
	}
}

func (s *store) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
	delete(s.metrics, id)
	delete(s.alerts, id)
}

func (s *store) get(id string) (*types.ApiKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[id]
	return k, ok
}

func (s *store) metricsFor(id string) (*types.KeyPerformanceMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metrics[id]
	return m, ok
}

func (s *store) list() []*types.ApiKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.ApiKey, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, k)
	}
	return out
}

func (s *store) listByService(service string) []*types.ApiKey {
	service = strings.ToLower(service)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.ApiKey, 0)
	for _, k := range s.keys {
		if strings.ToLower(string(k.Service)) == service {
			out = append(out, k)
		}
	}
	return out
}

// resetPeriodDuration maps a ResetPeriod to its wall-clock duration.
func resetPeriodDuration(p types.ResetPeriod) time.Duration {
	switch p {
	case types.ResetMinute:
		return time.Minute
	case types.ResetHour:
		return time.Hour
	case types.ResetDay:
		return 24 * time.Hour
	case types.ResetMonth:
		return 30 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// maybeResetQuota atomically resets usage_count if the reset period
// has elapsed, before any admission comparison is made against it. It
// reports whether a reset actually happened, so callers can propagate
// the reset to a secondary counter (the Redis hot-cache). Must be
// called with the key already retrieved under lock-free read; the
// mutation itself takes the store write lock.
func (s *store) maybeResetQuota(key *types.ApiKey, now time.Time) bool {
	if now.Sub(key.LastReset) < resetPeriodDuration(key.ResetPeriod) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under lock: another goroutine may have reset already.
	if now.Sub(key.LastReset) < resetPeriodDuration(key.ResetPeriod) {
		return false
	}
	key.UsageCount = 0
	key.LastReset = now
	if key.Status == types.KeyExhausted {
		key.Status = types.KeyActive
	}
	return true
}
