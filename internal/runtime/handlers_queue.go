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
	"encoding/json"
	"net/http"

	"research-orchestration-core/shared/types"
)

type reasonRequest struct {
	Reason string `json:"reason"`
}

func decodeReason(r *http.Request) string {
	var req reasonRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		return "operator request"
	}
	return req.Reason
}

func (rt *Runtime) queuePauseHandler(w http.ResponseWriter, r *http.Request) {
	if err := rt.queue.Pause(decodeReason(r)); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.queue.Status())
}

func (rt *Runtime) queueResumeHandler(w http.ResponseWriter, r *http.Request) {
	if err := rt.queue.Resume(decodeReason(r)); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.queue.Status())
}

func (rt *Runtime) queueDrainHandler(w http.ResponseWriter, r *http.Request) {
	if err := rt.queue.Drain(decodeReason(r)); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.queue.Status())
}

func (rt *Runtime) queueEmergencyStopHandler(w http.ResponseWriter, r *http.Request) {
	if err := rt.queue.EmergencyStop(r.Context(), decodeReason(r)); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.queue.Status())
}

func (rt *Runtime) queueStopHandler(w http.ResponseWriter, r *http.Request) {
	if err := rt.queue.Stop(decodeReason(r)); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.queue.Status())
}

func (rt *Runtime) queueStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.queue.Status())
}

func (rt *Runtime) queueHistoryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.queue.History())
}

func (rt *Runtime) queueResourcesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.queue.ResourceStatus())
}

type enqueueRequest struct {
	Name        string                              `json:"name"`
	Query       string                              `json:"query"`
	Methodology types.Methodology                    `json:"methodology"`
	Params      map[string]interface{}               `json:"params,omitempty"`
	Priority    types.Priority                       `json:"priority"`
	MaxRetries  int                                  `json:"max_retries"`
	Estimate    map[types.ResourceDimension]float64 `json:"estimate,omitempty"`
}

// enqueueHandler creates a workflow and submits it to the queue in one
// call, the shape most research-front-end clients want: they never see
// the intermediate Created-but-not-queued state.
func (rt *Runtime) enqueueHandler(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	workflow, err := rt.engine.CreateWorkflow(req.Name, req.Query, req.Methodology, req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := rt.queue.Enqueue(workflow, req.Priority, req.Estimate, req.MaxRetries); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, workflow)
}
