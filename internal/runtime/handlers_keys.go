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
	"encoding/csv"
	"encoding/json"
	"net/http"

	"research-orchestration-core/internal/keymanager"
	"research-orchestration-core/shared/types"
)

func (rt *Runtime) listKeysHandler(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")
	writeJSON(w, http.StatusOK, rt.keys.ListKeys(service))
}

func (rt *Runtime) getKeyHandler(w http.ResponseWriter, r *http.Request) {
	key, err := rt.keys.GetKey(pathParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

type addKeyRequest struct {
	Service types.ServiceTag `json:"service"`
	Name    string           `json:"name"`
	APIKey  string           `json:"api_key"`
	Quota   int64            `json:"quota"`
	Reset   types.ResetPeriod `json:"reset"`
}

func (rt *Runtime) addKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req addKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Reset == "" {
		req.Reset = types.ResetHour
	}
	if req.Quota == 0 {
		req.Quota = 1000
	}
	key, err := rt.keys.AddKey(req.Service, req.Name, req.APIKey, req.Quota, req.Reset)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, key)
}

type updateKeyRequest struct {
	Quota  *int64             `json:"quota,omitempty"`
	Reset  *types.ResetPeriod `json:"reset,omitempty"`
	Status *types.KeyStatus   `json:"status,omitempty"`
}

func (rt *Runtime) updateKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req updateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := rt.keys.UpdateKey(pathParam(r, "id"), req.Quota, req.Reset, req.Status); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (rt *Runtime) deleteKeyHandler(w http.ResponseWriter, r *http.Request) {
	if err := rt.keys.DeleteKey(pathParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Runtime) testKeyHandler(w http.ResponseWriter, r *http.Request) {
	result, err := rt.keys.TestKey(pathParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

func (rt *Runtime) resetKeyHandler(w http.ResponseWriter, r *http.Request) {
	if err := rt.keys.ForceReset(pathParam(r, "id")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (rt *Runtime) keyUsageHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.keys.GetUsageStats(pathParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Runtime) importCSVHandler(w http.ResponseWriter, r *http.Request) {
	reader := csv.NewReader(r.Body)
	rows, err := reader.ReadAll()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.keys.ImportCSV(rows))
}

func (rt *Runtime) importJSONHandler(w http.ResponseWriter, r *http.Request) {
	var records []keymanager.ImportRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.keys.ImportJSON(records))
}

func (rt *Runtime) exportKeysHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.keys.Export())
}
