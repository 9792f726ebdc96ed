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

import "net/http"

func (rt *Runtime) serviceMetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.registry.AllMetrics())
}

// keyMetricsHandler reports per-key usage stats across every
// registered key, the rotation-analytics view an operator dashboard
// polls.
func (rt *Runtime) keyMetricsHandler(w http.ResponseWriter, r *http.Request) {
	keys := rt.keys.ListKeys("")
	out := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		stats, err := rt.keys.GetUsageStats(k.ID)
		if err != nil {
			continue
		}
		out[k.ID] = stats
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Runtime) usageReportHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rt.keys.UsageReport()))
}
