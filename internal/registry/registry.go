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

package registry

import (
	"context"
	"strings"
	"sync"

	"research-orchestration-core/shared/logger"
	"research-orchestration-core/shared/types"
)

// Registry owns one Adapter and one replaceable ServiceConfig per
// closed service tag. It is the only component allowed to dispatch
// to an adapter: the call surface is table lookup by tag, never
// reflection or plugin loading.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	configs  map[string]*ServiceConfig
	metrics  map[string]*types.ServiceMetrics
	log      *logger.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		configs:  make(map[string]*ServiceConfig),
		metrics:  make(map[string]*types.ServiceMetrics),
		log:      logger.New("registry"),
	}
}

// Register installs an adapter for a service tag. tag is
// case-folded to its canonical lowercase form; an unknown tag is
// rejected with UnknownService.
func (r *Registry) Register(tag string, adapter Adapter, config *ServiceConfig) error {
	tag = strings.ToLower(tag)
	if !IsKnownService(tag) {
		return types.NewError(types.UnknownService, "registry", "Register", "service tag not in closed set: "+tag, nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[tag] = adapter
	r.configs[tag] = config
	r.metrics[tag] = &types.ServiceMetrics{Service: types.ServiceTag(tag), Health: types.ServiceHealthUnknown}
	r.log.Info("adapter registered", map[string]interface{}{"service": tag})
	return nil
}

// UpdateConfig replaces the config stored for a registered service.
// The registered adapter is not rebuilt and keeps using the config it
// was constructed with.
func (r *Registry) UpdateConfig(tag string, config *ServiceConfig) error {
	tag = strings.ToLower(tag)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.adapters[tag]; !ok {
		return types.NewError(types.UnknownService, "registry", "UpdateConfig", "service not registered: "+tag, nil)
	}
	r.configs[tag] = config
	return nil
}

// Get returns the adapter registered for tag.
func (r *Registry) Get(tag string) (Adapter, error) {
	tag = strings.ToLower(tag)
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[tag]
	if !ok {
		return nil, types.NewError(types.UnknownService, "registry", "Get", "service not registered: "+tag, nil)
	}
	return a, nil
}

// Call dispatches req to the named service's adapter, folding the
// outcome into that service's ServiceMetrics. The only error this
// returns is UnknownService (no adapter registered) or
// AdapterViolation (the adapter itself misbehaved) — a non-2xx
// provider response is a successful Call with Response.Success=false.
func (r *Registry) Call(ctx context.Context, tag string, req Request, key string) (Response, error) {
	tag = strings.ToLower(tag)
	adapter, err := r.Get(tag)
	if err != nil {
		return Response{}, err
	}

	resp, err := adapter.Request(ctx, req, key)
	if err != nil {
		return Response{}, types.NewError(types.AdapterViolation, "registry", "Call", "adapter "+tag+" violated its contract", err)
	}

	r.mu.Lock()
	if m, ok := r.metrics[tag]; ok {
		RecordCall(m, resp.Success, float64(resp.ResponseMS))
	}
	r.mu.Unlock()

	return resp, nil
}

// Metrics returns a snapshot of a registered service's ServiceMetrics.
func (r *Registry) Metrics(tag string) (types.ServiceMetrics, bool) {
	tag = strings.ToLower(tag)
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.metrics[tag]
	if !ok {
		return types.ServiceMetrics{}, false
	}
	return *m, true
}

// AllMetrics returns a snapshot of every registered service's metrics.
func (r *Registry) AllMetrics() map[string]types.ServiceMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]types.ServiceMetrics, len(r.metrics))
	for tag, m := range r.metrics {
		out[tag] = *m
	}
	return out
}

// HealthCheckAll runs HealthCheck against every registered adapter.
// A failing health check never propagates: it is recorded as
// Healthy=false in the returned map.
func (r *Registry) HealthCheckAll(ctx context.Context, keyFor func(service string) string) map[string]Health {
	r.mu.RLock()
	adapters := make(map[string]Adapter, len(r.adapters))
	for tag, a := range r.adapters {
		adapters[tag] = a
	}
	r.mu.RUnlock()

	results := make(map[string]Health, len(adapters))
	for tag, adapter := range adapters {
		h, err := adapter.HealthCheck(ctx, keyFor(tag))
		if err != nil {
			results[tag] = Health{Healthy: false, Detail: err.Error()}
			continue
		}
		results[tag] = h
	}
	return results
}

// List returns every registered service tag.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.adapters))
	for tag := range r.adapters {
		tags = append(tags, tag)
	}
	return tags
}
