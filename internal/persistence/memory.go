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

package persistence

import (
	"sort"
	"sync"
	"time"

	"research-orchestration-core/shared/types"
)

// usageEvent is one recorded call against a key, kept only long enough
// to answer GetUsageStats.
type usageEvent struct {
	day           string
	success       bool
	responseTimeMS float64
}

// MemoryStore is an in-process Persistence implementation: a reference
// for tests and for running the core without a database. It holds no
// connection, so Close is a no-op.
type MemoryStore struct {
	mu        sync.RWMutex
	keys      map[string]*types.ApiKey
	workflows map[string]*types.Workflow
	usage     map[string][]usageEvent
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:      make(map[string]*types.ApiKey),
		workflows: make(map[string]*types.Workflow),
		usage:     make(map[string][]usageEvent),
	}
}

// StoreKey upserts a key by id.
func (m *MemoryStore) StoreKey(key *types.ApiKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.ID] = key
	return nil
}

// DeleteKey removes a key and its usage history.
func (m *MemoryStore) DeleteKey(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, id)
	delete(m.usage, id)
	return nil
}

// GetAllKeys returns every stored key.
func (m *MemoryStore) GetAllKeys() ([]*types.ApiKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.ApiKey, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, k)
	}
	return out, nil
}

// GetKey returns one key by id.
func (m *MemoryStore) GetKey(id string) (*types.ApiKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.keys[id]
	if !ok {
		return nil, types.NewError(types.KeyNotFound, "persistence", "GetKey", "no such key: "+id, nil)
	}
	return k, nil
}

// GetWorkflow returns one workflow by id.
func (m *MemoryStore) GetWorkflow(id string) (*types.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workflows[id]
	if !ok {
		return nil, types.NewError(types.WorkflowNotFound, "persistence", "GetWorkflow", "no such workflow: "+id, nil)
	}
	return w, nil
}

// StoreWorkflow upserts a workflow by id.
func (m *MemoryStore) StoreWorkflow(w *types.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[w.ID] = w
	return nil
}

// RecordAPIUsage appends one usage event for a key under today's date.
func (m *MemoryStore) RecordAPIUsage(keyID string, service types.ServiceTag, endpoint string, success bool, responseTimeMS float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[keyID] = append(m.usage[keyID], usageEvent{
		day:           time.Now().UTC().Format("2006-01-02"),
		success:       success,
		responseTimeMS: responseTimeMS,
	})
	return nil
}

// GetUsageStats rolls up a key's recorded events into one entry per
// day over the trailing window, most recent day first.
func (m *MemoryStore) GetUsageStats(keyID string, days int) ([]UsageStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")
	byDay := make(map[string]*UsageStat)
	for _, ev := range m.usage[keyID] {
		if ev.day < cutoff {
			continue
		}
		st, ok := byDay[ev.day]
		if !ok {
			st = &UsageStat{Day: ev.day}
			byDay[ev.day] = st
		}
		st.Total++
		if ev.success {
			st.Success++
		} else {
			st.Fail++
		}
		st.AvgResponseMS = (st.AvgResponseMS*float64(st.Total-1) + ev.responseTimeMS) / float64(st.Total)
	}

	out := make([]UsageStat, 0, len(byDay))
	for _, st := range byDay {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out, nil
}
