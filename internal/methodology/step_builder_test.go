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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestration-core/shared/types"
)

func TestBuildSteps_WiresDependenciesAndSeedsQuery(t *testing.T) {
	w := &types.Workflow{ID: "w1", Query: "define CRDT"}
	steps := buildSteps(w, []stepSpec{
		{id: "search", kind: types.StepWebSearch, provider: types.ServiceTavily, endpoint: "/search", critical: true},
		{id: "synthesis", kind: types.StepSynthesis, provider: types.ServiceOpenRouter, endpoint: "/chat/completions", dependsOn: []string{"search"}, critical: false},
	})

	require.Len(t, steps, 2)
	assert.Equal(t, "search", steps[0].ID)
	assert.Equal(t, 0, steps[0].Index)
	assert.Equal(t, "web_search:tavily", steps[0].Name)
	assert.Equal(t, "define CRDT", steps[0].Input["query"])
	assert.Empty(t, steps[0].DependsOn)
	assert.True(t, steps[0].Critical)
	assert.Equal(t, types.StepPending, steps[0].Status)

	assert.Equal(t, 1, steps[1].Index)
	assert.Contains(t, steps[1].DependsOn, "search")
	assert.False(t, steps[1].Critical)
}

func TestBuildSteps_MergesParamsIntoInput(t *testing.T) {
	w := &types.Workflow{ID: "w1", Query: "q"}
	steps := buildSteps(w, []stepSpec{
		{id: "search", kind: types.StepWebSearch, provider: types.ServiceSerpAPI, endpoint: "/search", params: map[string]interface{}{"count": 20}},
	})

	require.Len(t, steps, 1)
	assert.Equal(t, "q", steps[0].Input["query"])
	assert.Equal(t, 20, steps[0].Input["count"])
}

func TestSynthesisContent_PrefersOwnStepOutput(t *testing.T) {
	outputs := map[string]map[string]interface{}{
		"synthesis": {"content": "final answer"},
		"search":    {"content": "raw search content"},
	}
	assert.Equal(t, "final answer", synthesisContent("synthesis", outputs))
}

func TestSynthesisContent_FallsBackToOtherStepsWhenMissing(t *testing.T) {
	outputs := map[string]map[string]interface{}{
		"search":  {"content": "alpha"},
		"extract": {"content": "beta"},
	}
	got := synthesisContent("synthesis", outputs)
	assert.Contains(t, got, "alpha")
	assert.Contains(t, got, "beta")
}

func TestSynthesisContent_EmptyWhenNothingHasContent(t *testing.T) {
	outputs := map[string]map[string]interface{}{
		"search": {"source_count": 3},
	}
	assert.Equal(t, "", synthesisContent("synthesis", outputs))
}
