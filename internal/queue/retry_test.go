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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestration-core/shared/types"
)

func TestRetry_DemotesPriorityAndResetsWorkflow(t *testing.T) {
	disp := newFakeDispatcher()
	disp.outcome = func(string) types.WorkflowStatus { return types.WorkflowFailed }
	q := NewQueue(testBudget(), disp, WithMaxConcurrent(2))
	require.NoError(t, q.Start("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Run(ctx)

	w := testWorkflow("w1")
	w.Steps = []*types.Step{{ID: "s1", Status: types.StepCompleted}}
	disp.seed(w)
	require.NoError(t, q.Enqueue(w, types.PriorityHigh, nil, 2))

	require.True(t, waitFor(time.Second, func() bool { return q.Depth() == 1 }))

	q.mu.RLock()
	qw := q.items[0]
	q.mu.RUnlock()
	assert.Equal(t, types.PriorityNormal, qw.Priority)
	assert.Equal(t, 1, qw.RetryCount)
	assert.Equal(t, types.WorkflowCreated, w.Status)
	assert.Equal(t, types.StepPending, w.Steps[0].Status)
}

func TestRetry_ExhaustedRetriesGoesToHistoryAsFailed(t *testing.T) {
	disp := newFakeDispatcher()
	disp.outcome = func(string) types.WorkflowStatus { return types.WorkflowFailed }
	q := NewQueue(testBudget(), disp, WithMaxConcurrent(2))
	require.NoError(t, q.Start("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Run(ctx)

	w := testWorkflow("w1")
	disp.seed(w)
	require.NoError(t, q.Enqueue(w, types.PriorityNormal, nil, 0))

	require.True(t, waitFor(time.Second, func() bool { return len(q.History()) == 1 }))
	hist := q.History()
	assert.Equal(t, types.WorkflowFailed, hist[0].Status)
	assert.Equal(t, 0, q.Depth())
}

func TestRetry_LowStaysLowOnDemote(t *testing.T) {
	disp := newFakeDispatcher()
	disp.outcome = func(string) types.WorkflowStatus { return types.WorkflowFailed }
	q := NewQueue(testBudget(), disp, WithMaxConcurrent(2))
	require.NoError(t, q.Start("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Run(ctx)

	w := testWorkflow("w1")
	disp.seed(w)
	require.NoError(t, q.Enqueue(w, types.PriorityLow, nil, 1))

	require.True(t, waitFor(time.Second, func() bool { return q.Depth() == 1 }))
	q.mu.RLock()
	qw := q.items[0]
	q.mu.RUnlock()
	assert.Equal(t, types.PriorityLow, qw.Priority)
}

func TestHistory_BoundedAtLimit(t *testing.T) {
	q := NewQueue(testBudget(), newFakeDispatcher())
	for i := 0; i < historyLimit+10; i++ {
		q.recordHistory(&types.QueuedWorkflow{Workflow: testWorkflow("w"), EnqueuedAt: time.Now()}, testWorkflow("w"))
	}
	assert.Len(t, q.History(), historyLimit)
}
