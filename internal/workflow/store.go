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

// Package workflow is the workflow engine (C3): the per-workflow state
// machine, DAG-based step dispatch, retry and circuit-breaker wrapped
// provider calls, and terminal-step result compilation.
package workflow

import (
	"sync"

	"research-orchestration-core/shared/types"
)

// store holds every live workflow in memory under one RWMutex, mirroring
// the single-writer-at-a-time policy used by the key manager's store.
type store struct {
	mu        sync.RWMutex
	workflows map[string]*types.Workflow
}

func newStore() *store {
	return &store{workflows: make(map[string]*types.Workflow)}
}

func (s *store) put(w *types.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[w.ID] = w
}

func (s *store) get(id string) (*types.Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[id]
	return w, ok
}

func (s *store) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
}

func (s *store) list() []*types.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		out = append(out, w)
	}
	return out
}
