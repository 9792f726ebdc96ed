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

// Hybrid is the widest methodology: search, then scrape, then an
// embedding analysis and a site mapping pass run concurrently off the
// scraped content, and a final synthesis depends on all four prior
// steps. Both search and scraping are critical, matching NickScamara;
// analysis and mapping may each fail independently without sinking
// the workflow, leaving a thinner synthesis input.
type Hybrid struct{}

func (Hybrid) Plan(w *types.Workflow) ([]*types.Step, error) {
	return buildSteps(w, []stepSpec{
		{id: "search", kind: types.StepWebSearch, provider: types.ServiceSerpAPI, endpoint: "/search", critical: true},
		{id: "scrape", kind: types.StepContentExtraction, provider: types.ServiceFirecrawl, endpoint: "/scrape", dependsOn: []string{"search"}, critical: true},
		{id: "analysis", kind: types.StepEmbeddings, provider: types.ServiceJina, endpoint: "/embeddings", dependsOn: []string{"scrape"}, critical: false},
		{id: "map", kind: types.StepContentMapping, provider: types.ServiceFirecrawl, endpoint: "/map", dependsOn: []string{"scrape"}, critical: false},
		{id: "synthesis", kind: types.StepSynthesis, provider: types.ServiceOpenRouter, endpoint: "/chat/completions", dependsOn: []string{"search", "scrape", "analysis", "map"}, critical: false},
	}), nil
}

func (Hybrid) Postprocess(w *types.Workflow, outputs map[string]map[string]interface{}) (*types.ResearchResults, error) {
	content := synthesisContent("synthesis", outputs)
	return workflow.CompileResults(w, content, outputs, map[string]string{"methodology": string(types.MethodologyHybrid)}), nil
}
