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

// Academic favors scholarly sources: an Exa academic search, a Jina
// content extraction pass over the results, then an academic-toned
// analysis. The search step is critical by the academic_search
// default-critical rule.
type Academic struct{}

func (Academic) Plan(w *types.Workflow) ([]*types.Step, error) {
	return buildSteps(w, []stepSpec{
		{id: "search", kind: types.StepAcademicSearch, provider: types.ServiceExa, endpoint: "/search", critical: true},
		{id: "extract", kind: types.StepContentExtraction, provider: types.ServiceJina, endpoint: "/reader", dependsOn: []string{"search"}, critical: false},
		{id: "analysis", kind: types.StepAIAnalysis, provider: types.ServiceOpenRouter, endpoint: "/chat/completions", dependsOn: []string{"extract"}, critical: false, params: map[string]interface{}{"tone": "academic"}},
	}), nil
}

func (Academic) Postprocess(w *types.Workflow, outputs map[string]map[string]interface{}) (*types.ResearchResults, error) {
	content := synthesisContent("analysis", outputs)
	return workflow.CompileResults(w, content, outputs, map[string]string{"methodology": string(types.MethodologyAcademic)}), nil
}
