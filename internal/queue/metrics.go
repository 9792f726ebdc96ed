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

package queue

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	promDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "research_orchestration_queue_depth",
		Help: "Number of workflows waiting for admission.",
	})
	promActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "research_orchestration_queue_active_workflows",
		Help: "Number of workflows currently dispatched to the workflow engine.",
	})
	promMaxConcurrent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "research_orchestration_queue_max_concurrent",
		Help: "Current admission concurrency cap.",
	})
	promEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "research_orchestration_queue_enqueued_total",
		Help: "Total workflows enqueued.",
	})
	promAdmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "research_orchestration_queue_admitted_total",
		Help: "Total workflows admitted into the workflow engine.",
	})
	promRetriedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "research_orchestration_queue_retried_total",
		Help: "Total workflows re-enqueued after a failed attempt.",
	})
	promAdmissionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "research_orchestration_queue_admission_latency_seconds",
		Help:    "Time a workflow spent queued before admission.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 300},
	})
	promResourceUtilization = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "research_orchestration_queue_resource_utilization_percent",
		Help: "Per-dimension resource utilization as a percentage of the configured limit.",
	}, []string{"dimension"})

	registerOnce sync.Once
)

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			promDepth,
			promActive,
			promMaxConcurrent,
			promEnqueuedTotal,
			promAdmittedTotal,
			promRetriedTotal,
			promAdmissionLatency,
			promResourceUtilization,
		)
	})
}

// metrics wraps the package's Prometheus collectors so Queue methods
// never touch the global registry directly.
type metrics struct{}

func newMetrics() *metrics {
	registerMetrics()
	return &metrics{}
}

func (*metrics) setDepth(n int)          { promDepth.Set(float64(n)) }
func (*metrics) setActive(n int)         { promActive.Set(float64(n)) }
func (*metrics) setMaxConcurrent(n int)  { promMaxConcurrent.Set(float64(n)) }
func (*metrics) incEnqueued()            { promEnqueuedTotal.Inc() }
func (*metrics) incAdmitted()            { promAdmittedTotal.Inc() }
func (*metrics) incRetried()             { promRetriedTotal.Inc() }
func (*metrics) observeAdmissionLatency(seconds float64) {
	promAdmissionLatency.Observe(seconds)
}
func (*metrics) setUtilization(dimension string, percent float64) {
	promResourceUtilization.WithLabelValues(dimension).Set(percent)
}
