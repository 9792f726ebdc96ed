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

// computePriorityScore implements:
//
//	score := 100 + (success_rate-50)*0.4
//	       + max(0,5000-min(avg_ms,5000))/5000*20
//	       + min(hours_since_last_use/24,1)*20
//	       - health_penalty
//
// clamped to a minimum of zero.
func computePriorityScore(m *types.KeyPerformanceMetrics, now time.Time) float64 {
	score := 100.0
	score += (m.SuccessRate - 50) * 0.4

	latency := m.AvgLatencyMS
	if latency > 5000 {
		latency = 5000
	}
	score += (5000 - latency) / 5000 * 20

	hoursSinceUse := 24.0
	if m.LastSuccessAt != nil || m.LastFailureAt != nil {
		last := m.LastSuccessAt
		if last == nil || (m.LastFailureAt != nil && m.LastFailureAt.After(*last)) {
			last = m.LastFailureAt
		}
		hoursSinceUse = now.Sub(*last).Hours()
	}
	recencyFactor := hoursSinceUse / 24
	if recencyFactor > 1 {
		recencyFactor = 1
	}
	score += recencyFactor * 20

	score -= m.Health.HealthPenalty()

	if score < 0 {
		score = 0
	}
	return score
}
