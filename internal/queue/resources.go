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

package queue

import (
	"context"
	"fmt"
	"time"

	"research-orchestration-core/shared/types"
)

// DimensionStatus is one resource dimension's current utilization.
type DimensionStatus struct {
	Dimension      types.ResourceDimension
	Current        float64
	Limit          float64
	UtilizationPct float64
	Warning        bool
}

// ResourceStatus is the operator-facing resource-accounting view.
type ResourceStatus struct {
	Dimensions      []DimensionStatus
	Recommendations []string
}

// ResourceStatus computes the current per-dimension utilization,
// flagging any dimension at or above the 90% warning threshold and
// recommending action for it.
func (q *Queue) ResourceStatus() ResourceStatus {
	q.mu.RLock()
	defer q.mu.RUnlock()

	status := ResourceStatus{}
	for _, dim := range types.AllResourceDimensions {
		limit := q.budget.Limit[dim]
		current := q.budget.Current[dim]
		pct := 0.0
		if limit > 0 {
			pct = current / limit * 100
		}
		warn := pct >= resourceWarnPercent
		status.Dimensions = append(status.Dimensions, DimensionStatus{
			Dimension:      dim,
			Current:        current,
			Limit:          limit,
			UtilizationPct: pct,
			Warning:        warn,
		})
		q.metrics.setUtilization(string(dim), pct)
		if warn {
			status.Recommendations = append(status.Recommendations,
				fmt.Sprintf("%s is at %.1f%% of its limit; consider lowering max_concurrent or raising the limit", dim, pct))
		}
	}
	return status
}

// ResourceSnapshots returns a copy of the bounded resource-usage
// history.
func (q *Queue) ResourceSnapshots() []ResourceSnapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]ResourceSnapshot, len(q.resourceSnapshots))
	copy(out, q.resourceSnapshots)
	return out
}

func (q *Queue) runResourceSnapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(resourceSnapshotTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.snapshotResources()
		}
	}
}

func (q *Queue) snapshotResources() {
	q.mu.Lock()
	defer q.mu.Unlock()

	current := make(map[types.ResourceDimension]float64, len(q.budget.Current))
	limit := make(map[types.ResourceDimension]float64, len(q.budget.Limit))
	for dim := range q.budget.Limit {
		current[dim] = q.budget.Current[dim]
		limit[dim] = q.budget.Limit[dim]
	}

	q.resourceSnapshots = append(q.resourceSnapshots, ResourceSnapshot{
		Timestamp: time.Now(),
		Current:   current,
		Limit:     limit,
	})
	if len(q.resourceSnapshots) > resourceSnapshotLimit {
		q.resourceSnapshots = q.resourceSnapshots[len(q.resourceSnapshots)-resourceSnapshotLimit:]
	}
}
