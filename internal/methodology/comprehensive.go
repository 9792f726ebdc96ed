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

// Comprehensive runs a wide SerpApi search, extracts the full content
// of the results, then analyzes the combined material in one pass.
// Only the search step is critical: a comprehensive survey with no
// search results at all is not useful, but a broken extraction or
// analysis pass still leaves a usable, if thinner, result.
type Comprehensive struct{}

func (Comprehensive) Plan(w *types.Workflow) ([]*types.Step, error) {
	return buildSteps(w, []stepSpec{
		{id: "search", kind: types.StepWebSearch, provider: types.ServiceSerpAPI, endpoint: "/search", critical: true, params: map[string]interface{}{"count": 20}},
		{id: "extract", kind: types.StepContentExtraction, provider: types.ServiceFirecrawl, endpoint: "/scrape", dependsOn: []string{"search"}, critical: false},
		{id: "analysis", kind: types.StepAIAnalysis, provider: types.ServiceOpenRouter, endpoint: "/chat/completions", dependsOn: []string{"extract"}, critical: false, params: map[string]interface{}{"model": "claude-3-sonnet"}},
	}), nil
}

func (Comprehensive) Postprocess(w *types.Workflow, outputs map[string]map[string]interface{}) (*types.ResearchResults, error) {
	content := synthesisContent("analysis", outputs)
	return workflow.CompileResults(w, content, outputs, map[string]string{"methodology": string(types.MethodologyComprehensive)}), nil
}
