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
	"fmt"
	"sort"
	"strings"

	"research-orchestration-core/shared/types"
)

// UsageReport renders a markdown usage report: summary stats, a
// per-service table, and the top-20 keys by priority score. Generated
// both on-demand and by the daily background task.
func (m *Manager) UsageReport() string {
	keys := m.store.list()

	var b strings.Builder
	b.WriteString("# API Key Usage Report\n\n")

	var totalQuota, totalUsage int64
	perService := map[string][]*types.ApiKey{}
	for _, k := range keys {
		totalQuota += k.Quota
		totalUsage += k.UsageCount
		perService[string(k.Service)] = append(perService[string(k.Service)], k)
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Total keys: %d\n", len(keys))
	fmt.Fprintf(&b, "- Total quota: %d\n", totalQuota)
	fmt.Fprintf(&b, "- Total usage: %d\n\n", totalUsage)

	services := make([]string, 0, len(perService))
	for svc := range perService {
		services = append(services, svc)
	}
	sort.Strings(services)

	for _, svc := range services {
		svcKeys := perService[svc]
		fmt.Fprintf(&b, "## %s\n\n", svc)
		b.WriteString("| Key | Status | Usage | Quota |\n|---|---|---|---|\n")
		for _, k := range svcKeys {
			fmt.Fprintf(&b, "| %s | %s | %d | %d |\n", k.Name, k.Status, k.UsageCount, k.Quota)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Top Keys by Priority Score\n\n")
	b.WriteString("| Rank | Key | Service | Priority Score | Health |\n|---|---|---|---|---|\n")

	type ranked struct {
		key     *types.ApiKey
		metrics types.KeyPerformanceMetrics
	}
	rankedKeys := make([]ranked, 0, len(keys))
	for _, k := range keys {
		metrics, ok := m.store.metricsFor(k.ID)
		if !ok {
			continue
		}
		rankedKeys = append(rankedKeys, ranked{k, *metrics})
	}
	sort.Slice(rankedKeys, func(i, j int) bool {
		return rankedKeys[i].metrics.PriorityScore > rankedKeys[j].metrics.PriorityScore
	})
	if len(rankedKeys) > 20 {
		rankedKeys = rankedKeys[:20]
	}
	for i, r := range rankedKeys {
		fmt.Fprintf(&b, "| %d | %s | %s | %.2f | %s |\n", i+1, r.key.Name, r.key.Service, r.metrics.PriorityScore, r.metrics.Health)
	}

	return b.String()
}
