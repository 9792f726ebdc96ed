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

// Package queue is the queue controller (C4): a priority-then-FIFO
// admission queue sitting in front of the workflow engine, gating
// dispatch on a six-dimension resource budget and a five-state
// lifecycle machine.
package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"research-orchestration-core/shared/logger"
	"research-orchestration-core/shared/types"
)

const (
	defaultMaxConcurrent  = 5
	admissionTick         = 2 * time.Second
	resourceSnapshotTick  = time.Minute
	historyLimit          = 100
	resourceSnapshotLimit = 1000
	resourceWarnPercent   = 90.0
)

// Dispatcher is the narrow slice of internal/workflow.Engine the queue
// depends on: hand a workflow to C3 and read back its terminal state.
// Depending on the interface rather than *workflow.Engine keeps the
// two packages decoupled for testing.
type Dispatcher interface {
	Run(ctx context.Context, id string) error
	Get(id string) (*types.Workflow, error)
	Cancel(id string) error
}

// HistoryEntry is a bounded record of a workflow that left the queue
// for good (Completed, Failed with retries exhausted, or Cancelled).
type HistoryEntry struct {
	WorkflowID  string
	Name        string
	Methodology types.Methodology
	Status      types.WorkflowStatus
	Priority    types.Priority
	RetryCount  int
	EnqueuedAt  time.Time
	FinishedAt  time.Time
}

// ResourceSnapshot is a point-in-time capture of resource usage,
// retained for later analytics.
type ResourceSnapshot struct {
	Timestamp time.Time
	Current   map[types.ResourceDimension]float64
	Limit     map[types.ResourceDimension]float64
}

// Queue is the queue controller. One Queue instance owns one priority
// list, one resource budget, and the goroutines that drain it into a
// Dispatcher.
type Queue struct {
	mu sync.RWMutex

	items       []*types.QueuedWorkflow
	state       types.QueueState
	reason      string
	stateSince  time.Time
	maxConcurrent int
	activeCount int
	activeIDs   map[string]struct{}
	fairnessHorizon time.Duration

	budget *types.ResourceBudget

	history           []HistoryEntry
	resourceSnapshots []ResourceSnapshot

	dispatcher Dispatcher
	log        *logger.Logger
	metrics    *metrics

	wake chan struct{}
}

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithMaxConcurrent overrides the default concurrency cap (5).
func WithMaxConcurrent(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxConcurrent = n
		}
	}
}

// WithFairnessHorizon enables out-of-order admission: an item waiting
// longer than horizon may be admitted ahead of a head-of-queue item
// that cannot currently fit its resource estimate. Zero (the default)
// disables the behavior, matching strict priority-then-FIFO.
func WithFairnessHorizon(horizon time.Duration) Option {
	return func(q *Queue) {
		q.fairnessHorizon = horizon
	}
}

// NewQueue constructs a Stopped Queue bound to budget and dispatcher.
func NewQueue(budget *types.ResourceBudget, dispatcher Dispatcher, opts ...Option) *Queue {
	q := &Queue{
		state:         types.QueueStopped,
		reason:        "initialized",
		stateSince:    time.Now(),
		maxConcurrent: defaultMaxConcurrent,
		budget:        budget,
		dispatcher:    dispatcher,
		log:           logger.New("queue"),
		metrics:       newMetrics(),
		wake:          make(chan struct{}, 1),
		activeIDs:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.metrics.setMaxConcurrent(q.maxConcurrent)
	return q
}

// SetMaxConcurrent hot-configures the concurrency cap; it takes effect
// on the next admission pass.
func (q *Queue) SetMaxConcurrent(n int) {
	if n < 1 {
		n = 1
	}
	q.mu.Lock()
	q.maxConcurrent = n
	q.mu.Unlock()
	q.metrics.setMaxConcurrent(n)
	q.wakeAdmission()
}

// Depth returns the number of items currently waiting (not yet
// admitted).
func (q *Queue) Depth() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// ActiveCount returns the number of workflows currently dispatched to
// C3.
func (q *Queue) ActiveCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.activeCount
}

// Enqueue inserts w into the priority list. It never blocks: capacity
// is unbounded, backpressure is applied at admission. Refused only
// when the queue is in Emergency, which refuses all new work.
func (q *Queue) Enqueue(w *types.Workflow, priority types.Priority, estimate map[types.ResourceDimension]float64, maxRetries int) error {
	if estimate == nil {
		estimate = DefaultEstimate(w.Methodology)
	}
	qw := &types.QueuedWorkflow{
		Workflow:           w,
		Priority:           priority,
		EnqueuedAt:         time.Now(),
		EstimatedResources: estimate,
		MaxRetries:         maxRetries,
	}

	q.mu.Lock()
	if q.state == types.QueueEmergency {
		q.mu.Unlock()
		return types.NewError(types.InvalidOperation, "queue", "Enqueue", "queue is in emergency state", nil)
	}
	q.insertLocked(qw)
	depth := len(q.items)
	q.mu.Unlock()

	q.metrics.setDepth(depth)
	q.metrics.incEnqueued()
	q.wakeAdmission()
	return nil
}

// insertLocked inserts qw keeping the slice ordered by priority
// descending, then enqueue time ascending within a priority band.
// Caller must hold mu.
func (q *Queue) insertLocked(qw *types.QueuedWorkflow) {
	i := sort.Search(len(q.items), func(i int) bool {
		item := q.items[i]
		if item.Priority != qw.Priority {
			return item.Priority < qw.Priority
		}
		return item.EnqueuedAt.After(qw.EnqueuedAt)
	})
	q.items = append(q.items, nil)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = qw
}

func (q *Queue) wakeAdmission() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// DefaultEstimate returns the per-workflow-class default resource
// estimate used when Enqueue is called with no explicit estimate.
// Methodologies that fan out more providers cost proportionally more
// concurrent-request and bandwidth budget.
func DefaultEstimate(m types.Methodology) map[types.ResourceDimension]float64 {
	base := map[types.ResourceDimension]float64{
		types.ResourceMemoryMB:           128,
		types.ResourceCPUPercent:         5,
		types.ResourceAPICallsPerHour:    10,
		types.ResourceConcurrentRequests: 1,
		types.ResourceBandwidthMbps:      1,
		types.ResourceStorageMB:          16,
	}
	switch m {
	case types.MethodologyComprehensive, types.MethodologyHybrid, types.MethodologyNickScamara:
		base[types.ResourceMemoryMB] = 256
		base[types.ResourceConcurrentRequests] = 2
		base[types.ResourceAPICallsPerHour] = 20
	}
	return base
}
