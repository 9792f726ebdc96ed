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

// Package methodology is the methodology library (C5): six research
// methodologies, each a pure Plan/Postprocess pair matching
// internal/workflow's Methodology interface. No methodology here
// touches the network, the key manager, or the registry directly —
// C3 dispatches every step they describe.
package methodology

import (
	"fmt"

	"research-orchestration-core/shared/types"
)

// stepSpec is the declarative shape a methodology's Plan builds steps
// from: a kind, a provider, an endpoint, and the set of step IDs it
// depends on.
type stepSpec struct {
	id        string
	kind      types.StepKind
	provider  types.ServiceTag
	endpoint  string
	dependsOn []string
	critical  bool
	params    map[string]interface{}
}

// buildSteps materializes a stepSpec table into the Step slice Plan
// returns, wiring each DependsOn set and seeding Input with the
// workflow's query so every adapter receives it uniformly.
func buildSteps(w *types.Workflow, specs []stepSpec) []*types.Step {
	steps := make([]*types.Step, 0, len(specs))
	for i, spec := range specs {
		deps := make(map[string]struct{}, len(spec.dependsOn))
		for _, d := range spec.dependsOn {
			deps[d] = struct{}{}
		}
		input := map[string]interface{}{"query": w.Query}
		for k, v := range spec.params {
			input[k] = v
		}
		steps = append(steps, &types.Step{
			ID:        spec.id,
			Index:     i,
			Name:      fmt.Sprintf("%s:%s", spec.kind, spec.provider),
			Kind:      spec.kind,
			Provider:  spec.provider,
			Endpoint:  spec.endpoint,
			Input:     input,
			DependsOn: deps,
			Critical:  spec.critical,
			Status:    types.StepPending,
		})
	}
	return steps
}

// synthesisContent picks the synthesis step's own output content if
// present, falling back to a concatenation of every other completed
// step's content field so a methodology whose synthesis step failed
// (non-critical) still yields a usable, if thinner, result.
func synthesisContent(synthesisStepID string, outputs map[string]map[string]interface{}) string {
	if out, ok := outputs[synthesisStepID]; ok {
		if content, ok := out["content"].(string); ok && content != "" {
			return content
		}
	}

	var combined string
	for id, out := range outputs {
		if id == synthesisStepID {
			continue
		}
		if content, ok := out["content"].(string); ok {
			if combined != "" {
				combined += "\n\n"
			}
			combined += content
		}
	}
	return combined
}
