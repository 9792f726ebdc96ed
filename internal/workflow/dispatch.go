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
	"context"
	"sync"
	"time"

	"research-orchestration-core/shared/types"
)

// dispatchTick is how often the dispatch loop re-scans for newly ready
// steps.
const dispatchTick = time.Second

// Run drives workflow id from Created through to a terminal state:
// it dispatches ready steps up to the methodology's concurrency cap,
// retries and circuit-breaks each provider call, skips steps whose
// dependencies can never complete, and compiles the final
// ResearchResults once every step is terminal. Run blocks until the
// workflow reaches a terminal state or ctx is cancelled.
func (e *Engine) Run(ctx context.Context, id string) error {
	w, err := e.Get(id)
	if err != nil {
		return err
	}

	rs := e.getRunState(id)
	defer e.deleteRunState(id)
	now := time.Now()
	w.Status = types.WorkflowRunning
	w.StartedAt = &now

	limit := e.concurrencyCap(w)
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	var mu sync.Mutex // guards step status transitions against concurrent executeStep goroutines

	ticker := time.NewTicker(dispatchTick)
	defer ticker.Stop()

	dispatchReady := func() {
		mu.Lock()
		skipUnreachableSteps(w)
		ready := readySteps(w)
		mu.Unlock()

		for _, s := range ready {
			select {
			case sem <- struct{}{}:
			default:
				return // at capacity; remaining ready steps wait for the next tick
			}
			wg.Add(1)
			go func(step *types.Step) {
				defer wg.Done()
				defer func() { <-sem }()
				e.executeStep(ctx, w, step)
			}(s)
		}
	}

	for {
		if rs.isCancelled() {
			wg.Wait()
			return nil
		}
		if rs.isPaused() {
			select {
			case <-ctx.Done():
				wg.Wait()
				return ctx.Err()
			case <-ticker.C:
				continue
			}
		}

		mu.Lock()
		terminal := allStepsTerminal(w)
		mu.Unlock()
		if terminal {
			break
		}

		dispatchReady()

		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	wg.Wait()

	if rs.isCancelled() {
		return nil
	}

	return e.finish(w)
}

// finish transitions a workflow whose steps are all terminal into
// Completed or Failed, compiling ResearchResults on the success path.
// A critical step's failure always fails the workflow; a non-critical
// step's failure degrades the compiled result but does not fail it.
func (e *Engine) finish(w *types.Workflow) error {
	now := time.Now()
	w.CompletedAt = &now

	if anyCriticalStepFailed(w) {
		w.Status = types.WorkflowFailed
		e.persistFinished(w)
		return nil
	}

	methodology, ok := e.methodologies[w.Methodology]
	if !ok {
		w.Status = types.WorkflowFailed
		e.persistFinished(w)
		return types.NewError(types.MethodologyNotFound, "workflow", "finish", "no such methodology: "+string(w.Methodology), nil)
	}

	outputs := make(map[string]map[string]interface{}, len(w.Steps))
	for _, s := range w.Steps {
		if s.Status == types.StepCompleted {
			outputs[s.ID] = s.Output
		}
	}

	results, err := methodology.Postprocess(w, outputs)
	if err != nil {
		w.Status = types.WorkflowFailed
		e.persistFinished(w)
		return types.NewError(types.InvalidOperation, "workflow", "finish", "result compilation failed", err)
	}
	results.TotalDurationMS = now.Sub(*w.StartedAt).Milliseconds()

	w.Results = results
	w.Status = types.WorkflowCompleted
	e.persistFinished(w)
	return nil
}

// persistFinished snapshots a terminal workflow through the optional
// persistence collaborator. A write failure is logged, never returned:
// the in-memory result is still authoritative for the caller.
func (e *Engine) persistFinished(w *types.Workflow) {
	if e.persistence == nil {
		return
	}
	if err := e.persistence.StoreWorkflow(w); err != nil {
		e.log.ErrorWithErr("persist finished workflow failed", err, map[string]interface{}{"workflow_id": w.ID})
	}
}
