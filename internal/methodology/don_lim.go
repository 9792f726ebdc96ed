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

// DonLim searches with SerpApi, embeds the results with Jina, then
// synthesizes a final answer from the embedded material. Only the
// search step is critical.
type DonLim struct{}

func (DonLim) Plan(w *types.Workflow) ([]*types.Step, error) {
	return buildSteps(w, []stepSpec{
		{id: "search", kind: types.StepWebSearch, provider: types.ServiceSerpAPI, endpoint: "/search", critical: true},
		{id: "embed", kind: types.StepEmbeddings, provider: types.ServiceJina, endpoint: "/embeddings", dependsOn: []string{"search"}, critical: false},
		{id: "synthesis", kind: types.StepSynthesis, provider: types.ServiceOpenRouter, endpoint: "/chat/completions", dependsOn: []string{"embed"}, critical: false},
	}), nil
}

func (DonLim) Postprocess(w *types.Workflow, outputs map[string]map[string]interface{}) (*types.ResearchResults, error) {
	content := synthesisContent("synthesis", outputs)
	return workflow.CompileResults(w, content, outputs, map[string]string{"methodology": string(types.MethodologyDonLim)}), nil
}
