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

// QueueManagementStatus is the operator-facing view of what
// transitions are currently legal.
type QueueManagementStatus struct {
	State             types.QueueState
	Reason            string
	Since             time.Time
	Depth             int
	ActiveCount       int
	MaxConcurrent     int
	CanPause          bool
	CanResume         bool
	CanStop           bool
	CanEmergencyStop  bool
	CanDrain          bool
}

// Status returns the current QueueManagementStatus snapshot.
func (q *Queue) Status() QueueManagementStatus {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return QueueManagementStatus{
		State:            q.state,
		Reason:           q.reason,
		Since:            q.stateSince,
		Depth:            len(q.items),
		ActiveCount:      q.activeCount,
		MaxConcurrent:    q.maxConcurrent,
		CanPause:         q.state == types.QueueRunning,
		CanResume:        q.state == types.QueuePaused,
		CanStop:          q.state == types.QueueEmergency || q.state == types.QueueDraining,
		CanEmergencyStop: q.state == types.QueueRunning || q.state == types.QueuePaused || q.state == types.QueueDraining,
		CanDrain:         q.state == types.QueueRunning,
	}
}

// transitionLocked moves the queue to next, stamping reason and time.
// Caller must hold mu.
func (q *Queue) transitionLocked(next types.QueueState, reason string) {
	q.state = next
	q.reason = reason
	q.stateSince = time.Now()
}

// Start moves Stopped → Running, enabling admission.
func (q *Queue) Start(reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != types.QueueStopped {
		return invalidTransition("Start", q.state, types.QueueRunning)
	}
	q.transitionLocked(types.QueueRunning, reason)
	q.wakeAdmission()
	return nil
}

// Pause moves Running → Paused. Active workflows keep running; no new
// admission occurs until Resume.
func (q *Queue) Pause(reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != types.QueueRunning {
		return invalidTransition("Pause", q.state, types.QueuePaused)
	}
	q.transitionLocked(types.QueuePaused, reason)
	return nil
}

// Resume moves Paused → Running.
func (q *Queue) Resume(reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != types.QueuePaused {
		return invalidTransition("Resume", q.state, types.QueueRunning)
	}
	q.transitionLocked(types.QueueRunning, reason)
	q.wakeAdmission()
	return nil
}

// Drain moves Running → Draining. New enqueues are still accepted;
// admission of anything beyond already-queued items is refused. Once
// no item queued before the Drain remains, the admission loop moves it
// to Stopped on its own.
func (q *Queue) Drain(reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != types.QueueRunning {
		return invalidTransition("Drain", q.state, types.QueueDraining)
	}
	q.transitionLocked(types.QueueDraining, reason)
	q.wakeAdmission()
	return nil
}

// EmergencyStop moves Running/Paused/Draining → Emergency, signaling
// cancellation to every active workflow and refusing both enqueue and
// admission until an operator explicitly Stops the queue.
func (q *Queue) EmergencyStop(ctx context.Context, reason string) error {
	q.mu.Lock()
	if q.state != types.QueueRunning && q.state != types.QueuePaused && q.state != types.QueueDraining {
		q.mu.Unlock()
		return invalidTransition("EmergencyStop", q.state, types.QueueEmergency)
	}
	q.transitionLocked(types.QueueEmergency, reason)
	activeIDs := make([]string, 0, len(q.activeIDs))
	for id := range q.activeIDs {
		activeIDs = append(activeIDs, id)
	}
	q.mu.Unlock()

	for _, id := range activeIDs {
		if err := q.dispatcher.Cancel(id); err != nil {
			q.log.ErrorWithErr("emergency cancel failed", err, map[string]interface{}{"workflow_id": id})
		}
	}
	return nil
}

// Stop moves Emergency or Draining → Stopped. Per the state machine,
// Emergency requires an explicit Stop before the queue can Start again;
// Draining also reaches Stopped on its own once its pre-drain items are
// admitted.
func (q *Queue) Stop(reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state != types.QueueEmergency && q.state != types.QueueDraining {
		return invalidTransition("Stop", q.state, types.QueueStopped)
	}
	q.transitionLocked(types.QueueStopped, reason)
	return nil
}

func invalidTransition(op string, from, to types.QueueState) error {
	return types.NewError(types.InvalidOperation, "queue", op, "cannot move from "+string(from)+" to "+string(to), nil)
}
