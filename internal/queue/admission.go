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
	"time"

	"research-orchestration-core/shared/types"
)

// Run starts the admission loop and the resource-snapshot loop. Both
// stop when ctx is cancelled. The admission loop wakes on enqueue,
// workflow completion, any state transition that calls wakeAdmission,
// and a 2-second timer, matching the four wakeup events.
func (q *Queue) Run(ctx context.Context) {
	go q.runAdmissionLoop(ctx)
	go q.runResourceSnapshotLoop(ctx)
}

func (q *Queue) runAdmissionLoop(ctx context.Context) {
	ticker := time.NewTicker(admissionTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.tryAdmit(ctx)
		case <-q.wake:
			q.tryAdmit(ctx)
		}
	}
}

// tryAdmit repeatedly admits whatever it can until the queue state
// forbids it, the concurrency cap is reached, the queue empties, or
// the head item's resource estimate does not fit.
func (q *Queue) tryAdmit(ctx context.Context) {
	for {
		qw, admitted := q.admitOneLocked()
		if !admitted {
			return
		}
		q.metrics.incAdmitted()
		q.metrics.observeAdmissionLatency(time.Since(qw.EnqueuedAt).Seconds())
		go q.dispatchWorkflow(ctx, qw)
	}
}

// admitOneLocked dequeues and allocates resources for at most one
// workflow, returning it and true on success.
func (q *Queue) admitOneLocked() (*types.QueuedWorkflow, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != types.QueueRunning && q.state != types.QueueDraining {
		return nil, false
	}
	if q.activeCount >= q.maxConcurrent {
		return nil, false
	}
	if len(q.items) == 0 {
		if q.state == types.QueueDraining {
			q.transitionLocked(types.QueueStopped, "drained")
		}
		return nil, false
	}

	idx := 0
	if q.state == types.QueueDraining {
		// Only items enqueued before the Drain are admitted; later ones
		// stay queued.
		idx = -1
		for i, item := range q.items {
			if !item.EnqueuedAt.After(q.stateSince) {
				idx = i
				break
			}
		}
		if idx < 0 {
			q.transitionLocked(types.QueueStopped, "drained")
			return nil, false
		}
	} else if q.fairnessHorizon > 0 && !q.budget.Fits(q.items[0].EstimatedResources) {
		if alt := q.findStarvedCandidateLocked(); alt >= 0 {
			idx = alt
		}
	}

	qw := q.items[idx]
	if !q.budget.Fits(qw.EstimatedResources) {
		return nil, false
	}

	q.items = append(q.items[:idx], q.items[idx+1:]...)
	q.budget.Allocate(qw.EstimatedResources)
	q.activeCount++
	q.activeIDs[qw.Workflow.ID] = struct{}{}

	q.metrics.setDepth(len(q.items))
	q.metrics.setActive(q.activeCount)
	return qw, true
}

// findStarvedCandidateLocked returns the index of the first item past
// the head that has waited longer than fairnessHorizon and whose
// estimate currently fits, or -1 if none qualifies. Caller must hold
// mu.
func (q *Queue) findStarvedCandidateLocked() int {
	now := time.Now()
	for i := 1; i < len(q.items); i++ {
		item := q.items[i]
		if now.Sub(item.EnqueuedAt) >= q.fairnessHorizon && q.budget.Fits(item.EstimatedResources) {
			return i
		}
	}
	return -1
}

// dispatchWorkflow hands a single admitted workflow to C3 and, once it
// returns, releases its resources and processes the terminal outcome.
func (q *Queue) dispatchWorkflow(ctx context.Context, qw *types.QueuedWorkflow) {
	if err := q.dispatcher.Run(ctx, qw.Workflow.ID); err != nil {
		q.log.ErrorWithErr("workflow dispatch returned an error", err, map[string]interface{}{"workflow_id": qw.Workflow.ID})
	}
	q.onWorkflowTerminal(qw)
}

// onWorkflowTerminal releases the workflow's resource allocation, then
// either re-enqueues it (Failed, retries remaining) or records it to
// history.
func (q *Queue) onWorkflowTerminal(qw *types.QueuedWorkflow) {
	q.mu.Lock()
	q.budget.Release(qw.EstimatedResources)
	q.activeCount--
	delete(q.activeIDs, qw.Workflow.ID)
	q.metrics.setActive(q.activeCount)
	q.mu.Unlock()
	q.wakeAdmission()

	w, err := q.dispatcher.Get(qw.Workflow.ID)
	if err != nil {
		q.log.ErrorWithErr("workflow missing after dispatch returned", err, map[string]interface{}{"workflow_id": qw.Workflow.ID})
		return
	}

	if w.Status == types.WorkflowFailed && qw.RetryCount < qw.MaxRetries {
		q.retry(qw, w)
		return
	}
	q.recordHistory(qw, w)
}

func (q *Queue) recordHistory(qw *types.QueuedWorkflow, w *types.Workflow) {
	finishedAt := time.Now()
	if w.CompletedAt != nil {
		finishedAt = *w.CompletedAt
	}
	entry := HistoryEntry{
		WorkflowID:  w.ID,
		Name:        w.Name,
		Methodology: w.Methodology,
		Status:      w.Status,
		Priority:    qw.Priority,
		RetryCount:  qw.RetryCount,
		EnqueuedAt:  qw.EnqueuedAt,
		FinishedAt:  finishedAt,
	}

	q.mu.Lock()
	q.history = append(q.history, entry)
	if len(q.history) > historyLimit {
		q.history = q.history[len(q.history)-historyLimit:]
	}
	q.mu.Unlock()
}

// History returns a copy of the bounded terminal-workflow history.
func (q *Queue) History() []HistoryEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]HistoryEntry, len(q.history))
	copy(out, q.history)
	return out
}
