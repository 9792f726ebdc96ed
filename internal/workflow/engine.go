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
	"sync"
	"time"

	"github.com/google/uuid"

	"research-orchestration-core/connectors/sdk"
	"research-orchestration-core/internal/keymanager"
	"research-orchestration-core/internal/registry"
	"research-orchestration-core/shared/logger"
	"research-orchestration-core/shared/types"
)

// defaultConcurrency is the per-workflow step concurrency cap used when
// a methodology does not specify one.
const defaultConcurrency = 4

// defaultMaxRetries is how many times a failed step is retried before
// it is given up on, per connectors/sdk's retry defaults.
const defaultMaxRetries = 3

// Persistence is the write-through/read-back collaborator completed
// workflows are persisted through. Engine treats it as optional: when
// unset, GetResults only ever answers from the in-memory set.
type Persistence interface {
	StoreWorkflow(w *types.Workflow) error
	GetWorkflow(id string) (*types.Workflow, error)
}

// Methodology is the capability a research methodology must provide:
// materializing a workflow's step DAG, and compiling the completed
// steps' outputs into a final ResearchResults. Implemented by the
// methodology library (C5); the engine depends only on this interface
// so C3 and C5 can evolve independently.
type Methodology interface {
	Plan(w *types.Workflow) ([]*types.Step, error)
	Postprocess(w *types.Workflow, outputs map[string]map[string]interface{}) (*types.ResearchResults, error)
}

// Engine is the workflow engine (C3): it owns every in-flight workflow,
// dispatches each workflow's step DAG with a bounded concurrency cap,
// and reports provider outcomes back into the key manager.
type Engine struct {
	store         *store
	registry      *registry.Registry
	keys          *keymanager.Manager
	methodologies map[types.Methodology]Methodology
	breakers      map[string]*sdk.CircuitBreaker
	breakersMu    sync.Mutex
	runStates     map[string]*runState
	runStatesMu   sync.Mutex
	persistence   Persistence
	log           *logger.Logger
}

// SetPersistence installs the write-through collaborator completed
// workflows are snapshotted to. Passing nil disables persistence.
func (e *Engine) SetPersistence(p Persistence) {
	e.persistence = p
}

// NewEngine wires the engine to the registry (C1) and key manager (C2)
// collaborators it dispatches steps through.
func NewEngine(reg *registry.Registry, keys *keymanager.Manager) *Engine {
	return &Engine{
		store:         newStore(),
		registry:      reg,
		keys:          keys,
		methodologies: make(map[types.Methodology]Methodology),
		breakers:      make(map[string]*sdk.CircuitBreaker),
		runStates:     make(map[string]*runState),
		log:           logger.New("workflow"),
	}
}

// RegisterMethodology installs the Plan/Postprocess pair for one
// methodology tag.
func (e *Engine) RegisterMethodology(name types.Methodology, m Methodology) {
	e.methodologies[name] = m
}

// CreateWorkflow materializes a new workflow's step DAG via its
// methodology's Plan and stores it in the Created state.
func (e *Engine) CreateWorkflow(name, query string, methodology types.Methodology, params map[string]interface{}) (*types.Workflow, error) {
	plan, ok := e.methodologies[methodology]
	if !ok {
		return nil, types.NewError(types.MethodologyNotFound, "workflow", "CreateWorkflow", "no such methodology: "+string(methodology), nil)
	}

	w := &types.Workflow{
		ID:          uuid.NewString(),
		Name:        name,
		Query:       query,
		Methodology: methodology,
		Params:      params,
		Status:      types.WorkflowCreated,
		CreatedAt:   time.Now(),
	}

	steps, err := plan.Plan(w)
	if err != nil {
		return nil, types.NewError(types.InvalidOperation, "workflow", "CreateWorkflow", "methodology planning failed", err)
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}
	w.Steps = steps

	e.store.put(w)
	return w, nil
}

// validateSteps rejects a plan the dispatch loop could never finish:
// a methodology with zero steps, or a step depending on an id that
// was never planned. A dangling dependency's status would stay
// permanently unresolved, so skipUnreachableSteps would never mark it
// skipped and Run's dispatch loop would spin until ctx is cancelled.
func validateSteps(steps []*types.Step) error {
	if len(steps) == 0 {
		return types.NewError(types.InvalidConfiguration, "workflow", "CreateWorkflow", "methodology produced zero steps", nil)
	}
	ids := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		ids[s.ID] = struct{}{}
	}
	for _, s := range steps {
		for depID := range s.DependsOn {
			if _, ok := ids[depID]; !ok {
				return types.NewError(types.InvalidConfiguration, "workflow", "CreateWorkflow", "step "+s.ID+" depends on non-existent step "+depID, nil)
			}
		}
	}
	return nil
}

// Get returns a workflow by id.
func (e *Engine) Get(id string) (*types.Workflow, error) {
	w, ok := e.store.get(id)
	if !ok {
		return nil, types.NewError(types.WorkflowNotFound, "workflow", "Get", "no such workflow: "+id, nil)
	}
	return w, nil
}

// GetResults returns a workflow's compiled results, checking the
// in-memory active set first and falling back to the persistence
// collaborator. Both paths report ok=false uniformly for "not yet
// produced", resolving the two historically divergent lookup paths.
func (e *Engine) GetResults(id string) (*types.ResearchResults, bool) {
	if w, ok := e.store.get(id); ok {
		if w.Results == nil {
			return nil, false
		}
		return w.Results, true
	}

	if e.persistence == nil {
		return nil, false
	}
	w, err := e.persistence.GetWorkflow(id)
	if err != nil || w.Results == nil {
		return nil, false
	}
	return w.Results, true
}

// List returns every workflow currently tracked by the engine.
func (e *Engine) List() []*types.Workflow {
	return e.store.list()
}

// circuitBreakerFor returns the shared circuit breaker for a provider
// service tag, creating it on first use. Five consecutive failures
// open the circuit for 30 seconds; the failure count matches the key
// health machine's own Failed threshold.
func (e *Engine) circuitBreakerFor(service string) *sdk.CircuitBreaker {
	e.breakersMu.Lock()
	defer e.breakersMu.Unlock()
	cb, ok := e.breakers[service]
	if !ok {
		cb = sdk.NewCircuitBreaker(service, 5, 30*time.Second)
		e.breakers[service] = cb
	}
	return cb
}

func (e *Engine) concurrencyCap(w *types.Workflow) int {
	if v, ok := w.Params["concurrency"]; ok {
		if n, ok := v.(int); ok && n > 0 {
			return n
		}
	}
	return defaultConcurrency
}

func (e *Engine) maxRetries(w *types.Workflow) int {
	if v, ok := w.Params["max_retries"]; ok {
		if n, ok := v.(int); ok && n >= 0 {
			return n
		}
	}
	return defaultMaxRetries
}
