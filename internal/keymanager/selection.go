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
	"math/rand"
	"sort"
	"sync/atomic"

	"research-orchestration-core/shared/types"
)

// candidate pairs a key with its current metrics snapshot for
// selection purposes.
type candidate struct {
	key     *types.ApiKey
	metrics *types.KeyPerformanceMetrics
}

// eligibleCandidates filters service's keys down to the admissible,
// healthy-enough set: must be admissible for a new request right now,
// and Unhealthy keys are only eligible while their consecutive
// failure count is still under 3 (a key can be Unhealthy from a low
// success rate alone without having failed three times in a row).
func (m *Manager) eligibleCandidates(service string) []candidate {
	keys := m.store.listByService(service)
	out := make([]candidate, 0, len(keys))
	for _, k := range keys {
		if !m.IsAdmissible(k) {
			continue
		}
		metrics, ok := m.store.metricsFor(k.ID)
		if !ok {
			continue
		}
		switch metrics.Health {
		case types.HealthHealthy, types.HealthDegraded:
			out = append(out, candidate{k, metrics})
		case types.HealthUnhealthy:
			if metrics.ConsecutiveFailures < 3 {
				out = append(out, candidate{k, metrics})
			}
		}
	}
	return out
}

// roundRobinCounters tracks a per-service cursor for RoundRobin
// selection across calls.
type roundRobinCounters struct {
	counters map[string]*uint64
}

func newRoundRobinCounters() *roundRobinCounters {
	return &roundRobinCounters{counters: make(map[string]*uint64)}
}

func (r *roundRobinCounters) next(service string, n int) int {
	if n == 0 {
		return 0
	}
	counter, ok := r.counters[service]
	if !ok {
		var c uint64
		counter = &c
		r.counters[service] = counter
	}
	v := atomic.AddUint64(counter, 1)
	return int(v-1) % n
}

// SelectKey picks one key for service using strategy. An empty
// candidate set is not an error: it returns (nil, false) meaning "no
// key available right now."
func (m *Manager) SelectKey(service string, strategy types.RotationStrategy) (*types.ApiKey, bool) {
	candidates := m.eligibleCandidates(service)
	if len(candidates) == 0 {
		return nil, false
	}

	switch strategy {
	case types.StrategyRoundRobin:
		idx := m.roundRobin.next(service, len(candidates))
		return candidates[idx].key, true

	case types.StrategyPriorityBased:
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].metrics.PriorityScore != candidates[j].metrics.PriorityScore {
				return candidates[i].metrics.PriorityScore > candidates[j].metrics.PriorityScore
			}
			return leastRecentlyUsed(candidates[i], candidates[j])
		})
		return candidates[0].key, true

	case types.StrategyLeastRecentlyUsed:
		sort.Slice(candidates, func(i, j int) bool {
			return leastRecentlyUsed(candidates[i], candidates[j])
		})
		return candidates[0].key, true

	case types.StrategyLoadBalanced:
		return weightedRandomSelect(candidates), true

	case types.StrategyHealthAware:
		fallthrough
	default:
		sort.Slice(candidates, func(i, j int) bool {
			oi, oj := candidates[i].metrics.Health.Ordinal(), candidates[j].metrics.Health.Ordinal()
			if oi != oj {
				return oi < oj
			}
			return candidates[i].metrics.PriorityScore > candidates[j].metrics.PriorityScore
		})
		return candidates[0].key, true
	}
}

// leastRecentlyUsed orders a before b when a was used longer ago (or
// never used at all, which sorts first).
func leastRecentlyUsed(a, b candidate) bool {
	au, bu := a.key.LastUsed, b.key.LastUsed
	if au == nil && bu == nil {
		return a.key.ID < b.key.ID
	}
	if au == nil {
		return true
	}
	if bu == nil {
		return false
	}
	return au.Before(*bu)
}

// weightedRandomSelect implements LoadBalanced:
//
//	weight_i ∝ (1 - usage_i/Σusage + 0.1) * score_i/100
func weightedRandomSelect(candidates []candidate) *types.ApiKey {
	var totalUsage float64
	for _, c := range candidates {
		totalUsage += float64(c.key.UsageCount)
	}

	weights := make([]float64, len(candidates))
	var totalWeight float64
	for i, c := range candidates {
		usageShare := 0.0
		if totalUsage > 0 {
			usageShare = float64(c.key.UsageCount) / totalUsage
		}
		weight := (1 - usageShare + 0.1) * (c.metrics.PriorityScore / 100)
		if weight < 0 {
			weight = 0
		}
		weights[i] = weight
		totalWeight += weight
	}

	if totalWeight <= 0 {
		return candidates[0].key
	}

	r := rand.Float64() * totalWeight
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return candidates[i].key
		}
	}
	return candidates[len(candidates)-1].key
}
