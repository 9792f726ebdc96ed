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

package types

import "time"

// Workflow is a single research run: a query, a methodology tag, the
// steps the methodology materialized, and (once Completed) its
// results.
type Workflow struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Query       string                 `json:"query"`
	Methodology Methodology            `json:"methodology"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Steps       []*Step                `json:"steps"`
	Status      WorkflowStatus         `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Results     *ResearchResults       `json:"results,omitempty"`
}

// StepByID returns the step with the given id, or nil.
func (w *Workflow) StepByID(id string) *Step {
	for _, s := range w.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Step is a single unit of work within a workflow's DAG.
type Step struct {
	ID           string                 `json:"id"`
	Index        int                    `json:"index"`
	Name         string                 `json:"name"`
	Kind         StepKind               `json:"kind"`
	Provider     ServiceTag             `json:"provider"`
	Endpoint     string                 `json:"endpoint"`
	Input        map[string]interface{} `json:"input,omitempty"`
	DependsOn    map[string]struct{}    `json:"-"`
	Critical     bool                   `json:"critical"`
	Status       StepStatus             `json:"status"`
	Output       map[string]interface{} `json:"output,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Attempts     int                    `json:"attempts"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

// DependenciesSatisfied reports whether every dependency of this step
// has completed within the given workflow.
func (s *Step) DependenciesSatisfied(w *Workflow) bool {
	for depID := range s.DependsOn {
		dep := w.StepByID(depID)
		if dep == nil || dep.Status != StepCompleted {
			return false
		}
	}
	return true
}

// ResearchResults is the immutable compiled output of a completed
// workflow.
type ResearchResults struct {
	Content         string            `json:"content"`
	Sources         []string          `json:"sources"`
	Metadata        map[string]string `json:"metadata"`
	WordCount       int               `json:"word_count"`
	SourceCount     int               `json:"source_count"`
	Methodology     Methodology       `json:"methodology"`
	TotalDurationMS int64             `json:"total_duration_ms"`
}

// ApiKey is a single credential for one provider service.
type ApiKey struct {
	ID            string      `json:"id"`
	Service       ServiceTag  `json:"service"`
	Name          string      `json:"name"`
	EncryptedSecret []byte    `json:"-"`
	Quota         int64       `json:"quota"`
	ResetPeriod   ResetPeriod `json:"reset_period"`
	UsageCount    int64       `json:"usage_count"`
	LastUsed      *time.Time  `json:"last_used,omitempty"`
	LastReset     time.Time   `json:"last_reset"`
	Status        KeyStatus   `json:"status"`
}

// KeyPerformanceMetrics tracks a key's rolling health and priority
// inputs.
type KeyPerformanceMetrics struct {
	KeyID              string      `json:"key_id"`
	TotalRequests       int64       `json:"total_requests"`
	SuccessfulRequests  int64       `json:"successful_requests"`
	FailedRequests      int64       `json:"failed_requests"`
	SuccessRate         float64     `json:"success_rate"`
	AvgLatencyMS        float64     `json:"avg_latency_ms"`
	ConsecutiveFailures int         `json:"consecutive_failures"`
	LastSuccessAt       *time.Time  `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time  `json:"last_failure_at,omitempty"`
	Health              HealthState `json:"health"`
	PriorityScore       float64     `json:"priority_score"`
	CooldownUntil       *time.Time  `json:"cooldown_until,omitempty"`
}

// QueuedWorkflow wraps a Workflow with the queue-specific bookkeeping
// needed to order and retry it.
type QueuedWorkflow struct {
	Workflow           *Workflow                      `json:"workflow"`
	Priority           Priority                       `json:"priority"`
	EnqueuedAt         time.Time                      `json:"enqueued_at"`
	EstimatedDuration  time.Duration                   `json:"estimated_duration"`
	EstimatedResources map[ResourceDimension]float64   `json:"estimated_resources"`
	RetryCount         int                             `json:"retry_count"`
	MaxRetries         int                             `json:"max_retries"`
}

// ResourceBudget tracks current and limit values across the six
// resource dimensions.
type ResourceBudget struct {
	Limit   map[ResourceDimension]float64 `json:"limit"`
	Current map[ResourceDimension]float64 `json:"current"`
}

// NewResourceBudget builds a zeroed budget with the given per-dimension
// limits.
func NewResourceBudget(limit map[ResourceDimension]float64) *ResourceBudget {
	current := make(map[ResourceDimension]float64, len(limit))
	for dim := range limit {
		current[dim] = 0
	}
	return &ResourceBudget{Limit: limit, Current: current}
}

// Fits reports whether current usage plus the given estimate stays
// within limit on every dimension.
func (b *ResourceBudget) Fits(estimate map[ResourceDimension]float64) bool {
	for _, dim := range AllResourceDimensions {
		if b.Current[dim]+estimate[dim] > b.Limit[dim] {
			return false
		}
	}
	return true
}

// Allocate adds the estimate to current usage. Caller must have
// checked Fits under the same lock.
func (b *ResourceBudget) Allocate(estimate map[ResourceDimension]float64) {
	for _, dim := range AllResourceDimensions {
		b.Current[dim] += estimate[dim]
	}
}

// Release subtracts the estimate from current usage, floored at zero.
func (b *ResourceBudget) Release(estimate map[ResourceDimension]float64) {
	for _, dim := range AllResourceDimensions {
		b.Current[dim] -= estimate[dim]
		if b.Current[dim] < 0 {
			b.Current[dim] = 0
		}
	}
}

// ServiceMetrics tracks a provider service's aggregate call health.
type ServiceMetrics struct {
	Service          ServiceTag    `json:"service"`
	TotalRequests    int64         `json:"total_requests"`
	SuccessfulRequests int64       `json:"successful_requests"`
	FailedRequests   int64         `json:"failed_requests"`
	MinLatencyMS     float64       `json:"min_latency_ms"`
	AvgLatencyMS     float64       `json:"avg_latency_ms"`
	MaxLatencyMS     float64       `json:"max_latency_ms"`
	Health           ServiceHealth `json:"health"`
	UptimePercent    float64       `json:"uptime_percent"`
}
