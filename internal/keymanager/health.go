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
	"time"

	"research-orchestration-core/shared/types"
)

// cooldownDuration is how long a Failed key sits in Cooldown before it
// is eligible to return to Healthy.
const cooldownDuration = 30 * time.Minute

// RecordOutcome folds one call's outcome into a key's metrics, runs
// the health state machine, and recomputes the priority score. It is
// the single entry point the workflow engine uses to report a
// provider call's result back to C2.
func (m *Manager) RecordOutcome(keyID string, success bool, latencyMS float64) {
	metrics, ok := m.store.metricsFor(keyID)
	if !ok {
		return
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	now := time.Now()
	metrics.TotalRequests++
	if success {
		metrics.SuccessfulRequests++
		metrics.ConsecutiveFailures = 0
		metrics.LastSuccessAt = &now
	} else {
		metrics.FailedRequests++
		metrics.ConsecutiveFailures++
		metrics.LastFailureAt = &now
	}

	if metrics.TotalRequests > 0 {
		metrics.SuccessRate = float64(metrics.SuccessfulRequests) / float64(metrics.TotalRequests) * 100
	}
	if metrics.AvgLatencyMS == 0 {
		metrics.AvgLatencyMS = latencyMS
	} else {
		metrics.AvgLatencyMS = metrics.AvgLatencyMS + (latencyMS-metrics.AvgLatencyMS)/float64(metrics.TotalRequests)
	}

	advanceHealth(metrics, now)
	metrics.PriorityScore = computePriorityScore(metrics, now)
}

// advanceHealth applies the five-state health machine's transition
// rules in order from worst-qualifying to best, so a key that now
// qualifies for Failed is never left at Unhealthy.
func advanceHealth(m *types.KeyPerformanceMetrics, now time.Time) {
	// Cooldown -> Healthy once the cooldown window has elapsed;
	// counters reset for a clean slate.
	if m.Health == types.HealthCooldown {
		if m.CooldownUntil != nil && now.After(*m.CooldownUntil) {
			m.Health = types.HealthHealthy
			m.ConsecutiveFailures = 0
			m.SuccessfulRequests = 0
			m.FailedRequests = 0
			m.TotalRequests = 0
			m.SuccessRate = 0
			m.CooldownUntil = nil
		}
		return
	}

	if m.ConsecutiveFailures >= 5 {
		m.Health = types.HealthFailed
		until := now.Add(cooldownDuration)
		m.CooldownUntil = &until
		m.Health = types.HealthCooldown
		return
	}

	if m.ConsecutiveFailures >= 3 || m.SuccessRate < 50 {
		m.Health = types.HealthUnhealthy
		return
	}

	if m.SuccessRate < 80 || m.AvgLatencyMS > 5000 {
		m.Health = types.HealthDegraded
		return
	}

	m.Health = types.HealthHealthy
}

// ReactivateExpiredCooldowns scans every key's metrics and brings any
// past-cooldown key back to Healthy. Run every 5 minutes by the
// background health-check task, alongside an adapter-level health
// check of each key (performed by the caller via the registry).
func (m *Manager) ReactivateExpiredCooldowns() {
	now := time.Now()
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, metrics := range m.store.metrics {
		advanceHealth(metrics, now)
	}
}
