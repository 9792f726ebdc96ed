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
	"time"

	"research-orchestration-core/shared/types"
)

// retry resets a Failed workflow to Created, clears its step
// timestamps, demotes its priority by one band, and re-enqueues it at
// the tail of the new band.
func (q *Queue) retry(qw *types.QueuedWorkflow, w *types.Workflow) {
	resetForRetry(w)
	qw.RetryCount++
	qw.Priority = qw.Priority.Demote()
	qw.EnqueuedAt = time.Now()

	q.mu.Lock()
	q.insertLocked(qw)
	depth := len(q.items)
	q.mu.Unlock()

	q.metrics.setDepth(depth)
	q.metrics.incRetried()
	q.wakeAdmission()
}

func resetForRetry(w *types.Workflow) {
	w.Status = types.WorkflowCreated
	w.StartedAt = nil
	w.CompletedAt = nil
	w.Results = nil
	for _, s := range w.Steps {
		s.Status = types.StepPending
		s.Output = nil
		s.Error = ""
		s.Attempts = 0
		s.StartedAt = nil
		s.CompletedAt = nil
	}
}
