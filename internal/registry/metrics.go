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

package registry

import "research-orchestration-core/shared/types"

// RecordCall folds one completed call's outcome into m, following the
// EMA-like running average and error-rate-to-health mapping rule.
func RecordCall(m *types.ServiceMetrics, success bool, latencyMS float64) {
	m.TotalRequests++
	if success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}

	if m.TotalRequests == 1 {
		m.MinLatencyMS = latencyMS
		m.MaxLatencyMS = latencyMS
		m.AvgLatencyMS = latencyMS
	} else {
		if latencyMS < m.MinLatencyMS {
			m.MinLatencyMS = latencyMS
		}
		if latencyMS > m.MaxLatencyMS {
			m.MaxLatencyMS = latencyMS
		}
		// Running average over all calls seen so far.
		m.AvgLatencyMS = m.AvgLatencyMS + (latencyMS-m.AvgLatencyMS)/float64(m.TotalRequests)
	}

	m.UptimePercent = float64(m.SuccessfulRequests) / float64(m.TotalRequests) * 100

	errorRate := float64(m.FailedRequests) / float64(m.TotalRequests) * 100
	switch {
	case errorRate > 50:
		m.Health = types.ServiceHealthDown
	case errorRate > 20:
		m.Health = types.ServiceHealthUnhealthy
	case errorRate > 5:
		m.Health = types.ServiceHealthDegraded
	default:
		m.Health = types.ServiceHealthHealthy
	}
}
