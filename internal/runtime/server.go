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
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// buildRouter wires every HTTP-exposed operation from the external
// interfaces surface: key management, queue management, workflow
// control, and observability.
func (rt *Runtime) buildRouter() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", rt.healthHandler).Methods(http.MethodGet)
	r.Handle("/prometheus", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/keys", rt.listKeysHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/keys", rt.addKeyHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/keys/{id}", rt.getKeyHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/keys/{id}", rt.updateKeyHandler).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/keys/{id}", rt.deleteKeyHandler).Methods(http.MethodDelete)
	r.HandleFunc("/api/v1/keys/{id}/test", rt.testKeyHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/keys/{id}/reset", rt.resetKeyHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/keys/{id}/usage", rt.keyUsageHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/keys/import/csv", rt.importCSVHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/keys/import/json", rt.importJSONHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/keys/export", rt.exportKeysHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/queue/enqueue", rt.enqueueHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/queue/pause", rt.queuePauseHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/queue/resume", rt.queueResumeHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/queue/drain", rt.queueDrainHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/queue/emergency-stop", rt.queueEmergencyStopHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/queue/stop", rt.queueStopHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/queue/status", rt.queueStatusHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/queue/history", rt.queueHistoryHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/queue/resources", rt.queueResourcesHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/workflows", rt.createWorkflowHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/workflows/{id}", rt.getWorkflowHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/workflows/{id}/start", rt.startWorkflowHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/workflows/{id}/cancel", rt.cancelWorkflowHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/workflows/{id}/results", rt.getWorkflowResultsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/workflows/{id}/progress", rt.getWorkflowProgressHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/observability/services", rt.serviceMetricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/observability/keys", rt.keyMetricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/observability/usage-report", rt.usageReportHandler).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (rt *Runtime) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "research-orchestration-core",
		"timestamp": time.Now().UTC(),
		"queue":     rt.queue.Status().State,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathParam(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
