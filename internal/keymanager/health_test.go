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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"research-orchestration-core/shared/types"
)

func TestAdvanceHealth_StaysHealthyOnGoodMetrics(t *testing.T) {
	m := &types.KeyPerformanceMetrics{SuccessRate: 100, AvgLatencyMS: 200}
	advanceHealth(m, time.Now())
	assert.Equal(t, types.HealthHealthy, m.Health)
}

func TestAdvanceHealth_DegradedOnLowSuccessOrHighLatency(t *testing.T) {
	m := &types.KeyPerformanceMetrics{SuccessRate: 70, AvgLatencyMS: 200}
	advanceHealth(m, time.Now())
	assert.Equal(t, types.HealthDegraded, m.Health)

	m2 := &types.KeyPerformanceMetrics{SuccessRate: 100, AvgLatencyMS: 6000}
	advanceHealth(m2, time.Now())
	assert.Equal(t, types.HealthDegraded, m2.Health)
}

func TestAdvanceHealth_UnhealthyOnConsecutiveFailuresOrLowSuccess(t *testing.T) {
	m := &types.KeyPerformanceMetrics{ConsecutiveFailures: 3, SuccessRate: 90}
	advanceHealth(m, time.Now())
	assert.Equal(t, types.HealthUnhealthy, m.Health)

	m2 := &types.KeyPerformanceMetrics{SuccessRate: 40}
	advanceHealth(m2, time.Now())
	assert.Equal(t, types.HealthUnhealthy, m2.Health)
}

func TestAdvanceHealth_FailedEntersCooldownAtFiveConsecutiveFailures(t *testing.T) {
	m := &types.KeyPerformanceMetrics{ConsecutiveFailures: 5}
	now := time.Now()
	advanceHealth(m, now)
	assert.Equal(t, types.HealthCooldown, m.Health)
	if assert.NotNil(t, m.CooldownUntil) {
		assert.True(t, m.CooldownUntil.After(now))
	}
}

func TestAdvanceHealth_CooldownExpiresBackToHealthyAndResetsCounters(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	m := &types.KeyPerformanceMetrics{
		Health: types.HealthCooldown, CooldownUntil: &past,
		ConsecutiveFailures: 5, TotalRequests: 10, SuccessfulRequests: 2, FailedRequests: 8, SuccessRate: 20,
	}
	advanceHealth(m, time.Now())
	assert.Equal(t, types.HealthHealthy, m.Health)
	assert.Zero(t, m.ConsecutiveFailures)
	assert.Zero(t, m.TotalRequests)
	assert.Nil(t, m.CooldownUntil)
}

func TestAdvanceHealth_CooldownStaysUntilWindowElapses(t *testing.T) {
	future := time.Now().Add(time.Minute)
	m := &types.KeyPerformanceMetrics{Health: types.HealthCooldown, CooldownUntil: &future}
	advanceHealth(m, time.Now())
	assert.Equal(t, types.HealthCooldown, m.Health)
}

func TestRecordOutcome_ResetsConsecutiveFailuresOnSuccess(t *testing.T) {
	mgr := newTestManager()
	key, _ := mgr.AddKey(types.ServiceExa, "k", "s", 100, types.ResetHour)

	mgr.RecordOutcome(key.ID, false, 50)
	mgr.RecordOutcome(key.ID, false, 50)
	metrics, ok := mgr.store.metricsFor(key.ID)
	assert.True(t, ok)
	assert.Equal(t, 2, metrics.ConsecutiveFailures)

	mgr.RecordOutcome(key.ID, true, 50)
	assert.Zero(t, metrics.ConsecutiveFailures)
}

func TestReactivateExpiredCooldowns(t *testing.T) {
	mgr := newTestManager()
	key, _ := mgr.AddKey(types.ServiceExa, "k", "s", 100, types.ResetHour)
	metrics, _ := mgr.store.metricsFor(key.ID)
	past := time.Now().Add(-time.Second)
	metrics.Health = types.HealthCooldown
	metrics.CooldownUntil = &past

	mgr.ReactivateExpiredCooldowns()
	assert.Equal(t, types.HealthHealthy, metrics.Health)
}
