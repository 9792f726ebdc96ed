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
	"sync"
	"time"

	"research-orchestration-core/shared/types"
)

// fakeDispatcher is a scriptable Dispatcher double: Run blocks for
// delay (honoring context cancellation) then stamps the workflow to
// whatever terminal status the test configured for its ID.
type fakeDispatcher struct {
	mu        sync.Mutex
	workflows map[string]*types.Workflow
	delay     time.Duration
	outcome   func(id string) types.WorkflowStatus
	cancelled map[string]bool
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		workflows: make(map[string]*types.Workflow),
		cancelled: make(map[string]bool),
		outcome:   func(string) types.WorkflowStatus { return types.WorkflowCompleted },
	}
}

func (f *fakeDispatcher) seed(w *types.Workflow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workflows[w.ID] = w
}

func (f *fakeDispatcher) Run(ctx context.Context, id string) error {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workflows[id]
	if !ok {
		return nil
	}
	if f.cancelled[id] {
		w.Status = types.WorkflowCancelled
		return nil
	}
	now := time.Now()
	w.Status = f.outcome(id)
	w.CompletedAt = &now
	return nil
}

func (f *fakeDispatcher) Get(id string) (*types.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workflows[id]
	if !ok {
		return nil, types.NewError(types.WorkflowNotFound, "workflow", "Get", "not found", nil)
	}
	return w, nil
}

func (f *fakeDispatcher) Cancel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled[id] = true
	return nil
}

func testBudget() *types.ResourceBudget {
	return types.NewResourceBudget(map[types.ResourceDimension]float64{
		types.ResourceMemoryMB:           1024,
		types.ResourceCPUPercent:         100,
		types.ResourceAPICallsPerHour:    1000,
		types.ResourceConcurrentRequests: 10,
		types.ResourceBandwidthMbps:      100,
		types.ResourceStorageMB:          1024,
	})
}

func testWorkflow(id string) *types.Workflow {
	return &types.Workflow{ID: id, Name: id, Query: "q", Methodology: types.MethodologyQuick, Status: types.WorkflowCreated, CreatedAt: time.Now()}
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
