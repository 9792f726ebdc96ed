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

package runtime

import (
	"context"
	"encoding/json"
	"net/http"

	"research-orchestration-core/shared/types"
)

type createWorkflowRequest struct {
	Name        string                 `json:"name"`
	Query       string                 `json:"query"`
	Methodology types.Methodology      `json:"methodology"`
	Params      map[string]interface{} `json:"params,omitempty"`
}

func (rt *Runtime) createWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	var req createWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	workflow, err := rt.engine.CreateWorkflow(req.Name, req.Query, req.Methodology, req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, workflow)
}

func (rt *Runtime) getWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	workflow, err := rt.engine.Get(pathParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, workflow)
}

// startWorkflowHandler runs a workflow outside the queue's admission
// control, for callers that already did their own resource accounting
// (the queue-backed path is enqueueHandler).
func (rt *Runtime) startWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	runCtx := context.WithoutCancel(r.Context())
	go func() {
		if err := rt.engine.Run(runCtx, id); err != nil {
			rt.log.ErrorWithErr("workflow run failed", err, map[string]interface{}{"workflow_id": id})
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (rt *Runtime) cancelWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	if err := rt.engine.Cancel(pathParam(r, "id")); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (rt *Runtime) getWorkflowResultsHandler(w http.ResponseWriter, r *http.Request) {
	results, ok := rt.engine.GetResults(pathParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, types.NewError(types.WorkflowNotFound, "runtime", "getWorkflowResultsHandler", "no results yet for this workflow", nil))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type workflowProgress struct {
	Status         types.WorkflowStatus `json:"status"`
	TotalSteps     int                  `json:"total_steps"`
	CompletedSteps int                  `json:"completed_steps"`
	FailedSteps    int                  `json:"failed_steps"`
	PercentDone    float64              `json:"percent_done"`
}

func (rt *Runtime) getWorkflowProgressHandler(w http.ResponseWriter, r *http.Request) {
	workflow, err := rt.engine.Get(pathParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	progress := workflowProgress{Status: workflow.Status, TotalSteps: len(workflow.Steps)}
	for _, s := range workflow.Steps {
		switch s.Status {
		case types.StepCompleted:
			progress.CompletedSteps++
		case types.StepFailed:
			progress.FailedSteps++
		}
	}
	if progress.TotalSteps > 0 {
		progress.PercentDone = 100 * float64(progress.CompletedSteps+progress.FailedSteps) / float64(progress.TotalSteps)
	}
	writeJSON(w, http.StatusOK, progress)
}
