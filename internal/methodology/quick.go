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

package methodology

import (
	"research-orchestration-core/internal/workflow"
	"research-orchestration-core/shared/types"
)

// Quick is the fastest methodology: a single Tavily search followed by
// a one-pass summary, with no parallel fan-out. Intended for queries
// that need an answer in seconds rather than a thorough survey. The
// search step is the only critical one, per the web_search/
// academic_search default-critical rule.
type Quick struct{}

func (Quick) Plan(w *types.Workflow) ([]*types.Step, error) {
	return buildSteps(w, []stepSpec{
		{id: "search", kind: types.StepWebSearch, provider: types.ServiceTavily, endpoint: "/search", critical: true, params: map[string]interface{}{"count": 10}},
		{id: "summary", kind: types.StepAISummary, provider: types.ServiceOpenRouter, endpoint: "/chat/completions", dependsOn: []string{"search"}, critical: false, params: map[string]interface{}{"model": "claude-3-haiku"}},
	}), nil
}

func (Quick) Postprocess(w *types.Workflow, outputs map[string]map[string]interface{}) (*types.ResearchResults, error) {
	content := synthesisContent("summary", outputs)
	return workflow.CompileResults(w, content, outputs, map[string]string{"methodology": string(types.MethodologyQuick)}), nil
}
