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
	"time"

	"research-orchestration-core/shared/types"
)

// RateLimitAlert fires when a key's usage crosses a configured
// threshold of its quota.
type RateLimitAlert struct {
	KeyID       string
	ThresholdPercent int
	UsagePercent     float64
	FiredAt          time.Time
}

// AlertThresholds is the default set of quota percentages that raise a
// RateLimitAlert.
var AlertThresholds = []int{80, 95, 100}

// alertRetention is how long alerts are kept in the bounded ring
// before the hourly prune task drops them.
const alertRetention = 24 * time.Hour

// IsAdmissible reports whether key may be used for a new request right
// now: Active, not globally emergency-stopped, and under quota. The
// reset-period check happens before this comparison, atomically.
func (m *Manager) IsAdmissible(key *types.ApiKey) bool {
	if m.emergencyStop.Load() {
		return false
	}
	if m.store.maybeResetQuota(key, time.Now()) && m.cache != nil {
		if err := m.cache.ResetUsage(context.Background(), key.ID); err != nil {
			m.log.ErrorWithErr("redis cache reset failed", err, map[string]interface{}{"key_id": key.ID})
		}
	}
	return key.Status == types.KeyActive && key.UsageCount < key.Quota
}

// RecordRequest increments usage_count unconditionally — both a
// successful and a failed call consume quota — and raises a
// RateLimitAlert if a new threshold was just crossed. It also marks
// the key Exhausted once usage reaches quota. When a Redis hot-cache
// is configured, the same increment is mirrored there so that
// multiple orchestrator replicas sharing one key converge on a single
// admission-relevant counter instead of each tracking quota alone.
func (m *Manager) RecordRequest(keyID string) {
	key, ok := m.store.get(keyID)
	if !ok {
		return
	}

	m.store.mu.Lock()
	key.UsageCount++
	now := time.Now()
	key.LastUsed = &now
	usagePercent := float64(key.UsageCount) / float64(key.Quota) * 100
	if key.UsageCount >= key.Quota && key.Status == types.KeyActive {
		key.Status = types.KeyExhausted
	}
	m.store.mu.Unlock()

	if m.cache != nil {
		if _, err := m.cache.IncrementUsage(context.Background(), keyID, resetPeriodDuration(key.ResetPeriod)); err != nil {
			m.log.ErrorWithErr("redis cache increment failed", err, map[string]interface{}{"key_id": keyID})
		}
	}

	for _, threshold := range AlertThresholds {
		if usagePercent >= float64(threshold) && !m.hasAlertAtThreshold(keyID, threshold) {
			m.store.mu.Lock()
			m.store.alerts[keyID] = append(m.store.alerts[keyID], RateLimitAlert{
				KeyID:            keyID,
				ThresholdPercent: threshold,
				UsagePercent:     usagePercent,
				FiredAt:          now,
			})
			m.store.mu.Unlock()
		}
	}
}

func (m *Manager) hasAlertAtThreshold(keyID string, threshold int) bool {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, a := range m.store.alerts[keyID] {
		if a.ThresholdPercent == threshold {
			return true
		}
	}
	return false
}

// Alerts returns the current (unpruned) alert ring for a key.
func (m *Manager) Alerts(keyID string) []RateLimitAlert {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	out := make([]RateLimitAlert, len(m.store.alerts[keyID]))
	copy(out, m.store.alerts[keyID])
	return out
}

// PruneAlerts drops alerts older than alertRetention across all keys.
// Run hourly by the background task.
func (m *Manager) PruneAlerts() {
	cutoff := time.Now().Add(-alertRetention)
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for keyID, alerts := range m.store.alerts {
		kept := alerts[:0]
		for _, a := range alerts {
			if a.FiredAt.After(cutoff) {
				kept = append(kept, a)
			}
		}
		m.store.alerts[keyID] = kept
	}
}

// UsageForecast linearly extrapolates a key's quota exhaustion time
// from its usage rate over the current reset window. Confidence grows
// with how much of the window has elapsed: a forecast made one minute
// into an hour-long window is far less reliable than one made fifty
// minutes in.
type UsageForecast struct {
	KeyID                string
	ProjectedExhaustion  *time.Time
	Confidence           float64
}

// Forecast computes a UsageForecast for key at now.
func Forecast(key *types.ApiKey, now time.Time) UsageForecast {
	windowLen := resetPeriodDuration(key.ResetPeriod)
	elapsed := now.Sub(key.LastReset)
	if elapsed <= 0 || key.UsageCount == 0 || key.Quota <= 0 {
		return UsageForecast{KeyID: key.ID, Confidence: 0}
	}

	rate := float64(key.UsageCount) / elapsed.Seconds() // requests/sec
	remaining := float64(key.Quota - key.UsageCount)
	confidence := elapsed.Seconds() / windowLen.Seconds()
	if confidence > 1 {
		confidence = 1
	}

	if remaining <= 0 || rate <= 0 {
		return UsageForecast{KeyID: key.ID, Confidence: confidence}
	}

	secondsToExhaustion := remaining / rate
	exhaustion := now.Add(time.Duration(secondsToExhaustion * float64(time.Second)))
	return UsageForecast{KeyID: key.ID, ProjectedExhaustion: &exhaustion, Confidence: confidence}
}
