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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestration-core/shared/types"
)

// emptyPlanMethodology plans zero steps, the degenerate DAG
// CreateWorkflow must reject rather than hand to the dispatch loop.
type emptyPlanMethodology struct{}

func (emptyPlanMethodology) Plan(w *types.Workflow) ([]*types.Step, error) {
	return nil, nil
}

func (emptyPlanMethodology) Postprocess(w *types.Workflow, outputs map[string]map[string]interface{}) (*types.ResearchResults, error) {
	return &types.ResearchResults{}, nil
}

// danglingDependencyMethodology plans a single step that depends on a
// step id that is never produced.
type danglingDependencyMethodology struct{}

func (danglingDependencyMethodology) Plan(w *types.Workflow) ([]*types.Step, error) {
	step := &types.Step{
		ID: "only", Index: 0, Kind: types.StepSynthesis, Status: types.StepPending,
		DependsOn: map[string]struct{}{"never-planned": {}},
	}
	return []*types.Step{step}, nil
}

func (danglingDependencyMethodology) Postprocess(w *types.Workflow, outputs map[string]map[string]interface{}) (*types.ResearchResults, error) {
	return &types.ResearchResults{}, nil
}

func TestCreateWorkflow_RejectsZeroStepPlan(t *testing.T) {
	engine, _ := newTestEngine(t, &stubAdapter{body: map[string]interface{}{"content": "x"}})
	engine.RegisterMethodology(types.MethodologyQuick, emptyPlanMethodology{})

	_, err := engine.CreateWorkflow("n", "q", types.MethodologyQuick, nil)
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.InvalidConfiguration, kind)
}

func TestCreateWorkflow_RejectsDanglingDependency(t *testing.T) {
	engine, _ := newTestEngine(t, &stubAdapter{body: map[string]interface{}{"content": "x"}})
	engine.RegisterMethodology(types.MethodologyQuick, danglingDependencyMethodology{})

	_, err := engine.CreateWorkflow("n", "q", types.MethodologyQuick, nil)
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.InvalidConfiguration, kind)
}

func TestCreateWorkflow_AcceptsWellFormedPlan(t *testing.T) {
	engine, _ := newTestEngine(t, &stubAdapter{body: map[string]interface{}{"content": "x"}})
	engine.RegisterMethodology(types.MethodologyQuick, noopMethodology{rootProvider: types.ServiceTavily})

	w, err := engine.CreateWorkflow("n", "q", types.MethodologyQuick, nil)
	require.NoError(t, err)
	assert.Len(t, w.Steps, 2)
}
