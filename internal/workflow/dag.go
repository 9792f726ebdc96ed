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

import "research-orchestration-core/shared/types"

// readySteps returns every Pending step whose dependencies are all
// Completed, keyed by step ID order of appearance.
func readySteps(w *types.Workflow) []*types.Step {
	var out []*types.Step
	for _, s := range w.Steps {
		if s.Status == types.StepPending && s.DependenciesSatisfied(w) {
			out = append(out, s)
		}
	}
	return out
}

// skipUnreachableSteps marks every Pending step that depends, directly
// or transitively, on a Failed or Skipped step as Skipped, so the
// dispatch loop never deadlocks waiting on a dependency that can never
// complete.
func skipUnreachableSteps(w *types.Workflow) {
	changed := true
	for changed {
		changed = false
		for _, s := range w.Steps {
			if s.Status != types.StepPending {
				continue
			}
			for depID := range s.DependsOn {
				dep := w.StepByID(depID)
				if dep != nil && (dep.Status == types.StepFailed || dep.Status == types.StepSkipped) {
					s.Status = types.StepSkipped
					changed = true
					break
				}
			}
		}
	}
}

// allStepsTerminal reports whether every step has left Pending/Running.
func allStepsTerminal(w *types.Workflow) bool {
	for _, s := range w.Steps {
		switch s.Status {
		case types.StepPending, types.StepRunning:
			return false
		}
	}
	return true
}

// anyCriticalStepFailed reports whether a Critical step ended Failed,
// or was Skipped because an upstream dependency it could never
// recover from failed — a skipped critical step is just as fatal as a
// failed one.
func anyCriticalStepFailed(w *types.Workflow) bool {
	for _, s := range w.Steps {
		if s.Critical && (s.Status == types.StepFailed || s.Status == types.StepSkipped) {
			return true
		}
	}
	return false
}
