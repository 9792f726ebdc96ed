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

package workflow

import (
	"sync"
	"time"

	"research-orchestration-core/shared/types"
)

// runState is the engine-side bookkeeping for one in-flight Run call:
// a cancellation flag checked between step dispatches and a pause
// gate the dispatch loop blocks on.
type runState struct {
	mu        sync.Mutex
	cancelled bool
	paused    bool
}

// getRunState returns the runState for id, creating one on first use.
// Entries live on the Engine, not at package scope, and are removed
// by deleteRunState once Run observes a workflow go terminal.
func (e *Engine) getRunState(id string) *runState {
	e.runStatesMu.Lock()
	defer e.runStatesMu.Unlock()
	rs, ok := e.runStates[id]
	if !ok {
		rs = &runState{}
		e.runStates[id] = rs
	}
	return rs
}

// deleteRunState removes id's bookkeeping once its workflow has
// reached a terminal state and no dispatch loop will read it again.
func (e *Engine) deleteRunState(id string) {
	e.runStatesMu.Lock()
	delete(e.runStates, id)
	e.runStatesMu.Unlock()
}

// Pause transitions a Running workflow to Paused. The dispatch loop
// observes this before starting any new step; steps already in flight
// run to completion.
func (e *Engine) Pause(id string) error {
	w, err := e.Get(id)
	if err != nil {
		return err
	}
	if w.Status != types.WorkflowRunning {
		return types.NewError(types.InvalidOperation, "workflow", "Pause", "workflow not running: "+id, nil)
	}
	w.Status = types.WorkflowPaused
	rs := e.getRunState(id)
	rs.mu.Lock()
	rs.paused = true
	rs.mu.Unlock()
	return nil
}

// Resume transitions a Paused workflow back to Running.
func (e *Engine) Resume(id string) error {
	w, err := e.Get(id)
	if err != nil {
		return err
	}
	if w.Status != types.WorkflowPaused {
		return types.NewError(types.InvalidOperation, "workflow", "Resume", "workflow not paused: "+id, nil)
	}
	w.Status = types.WorkflowRunning
	rs := e.getRunState(id)
	rs.mu.Lock()
	rs.paused = false
	rs.mu.Unlock()
	return nil
}

// Cancel marks a workflow Cancelled. Cancellation always wins over any
// step-level retry already backing off: the dispatch loop checks the
// cancellation flag before every retry attempt and every new dispatch.
func (e *Engine) Cancel(id string) error {
	w, err := e.Get(id)
	if err != nil {
		return err
	}
	switch w.Status {
	case types.WorkflowCompleted, types.WorkflowFailed, types.WorkflowCancelled:
		return types.NewError(types.InvalidOperation, "workflow", "Cancel", "workflow already terminal: "+id, nil)
	}
	w.Status = types.WorkflowCancelled
	now := time.Now()
	w.CompletedAt = &now
	rs := e.getRunState(id)
	rs.mu.Lock()
	rs.cancelled = true
	rs.mu.Unlock()
	return nil
}

func (rs *runState) isCancelled() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.cancelled
}

func (rs *runState) isPaused() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.paused
}
