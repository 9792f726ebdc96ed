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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"research-orchestration-core/internal/keymanager"
	"research-orchestration-core/internal/registry"
	"research-orchestration-core/shared/types"
)

// stubAdapter is a scriptable registry.Adapter test double: it answers
// either a fixed success/failure response or, for the flaky case,
// fails the first N calls before succeeding.
type stubAdapter struct {
	failFirstN int
	calls      int
	body       map[string]interface{}
}

func (a *stubAdapter) Request(ctx context.Context, req registry.Request, key string) (registry.Response, error) {
	a.calls++
	if a.calls <= a.failFirstN {
		return registry.Response{RequestID: req.RequestID, StatusCode: 503, Success: false, ErrorMessage: "temporary failure"}, nil
	}
	return registry.Response{RequestID: req.RequestID, StatusCode: 200, Success: true, Body: a.body}, nil
}

func (a *stubAdapter) HealthCheck(ctx context.Context, key string) (registry.Health, error) {
	return registry.Health{Healthy: true}, nil
}

func (a *stubAdapter) ValidateKey(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (a *stubAdapter) Endpoints() []string { return []string{"/search"} }

// slowAdapter blocks for a fixed delay (honoring context cancellation)
// before responding, so tests can exercise mid-flight cancellation.
type slowAdapter struct {
	delay time.Duration
	body  map[string]interface{}
}

func (a *slowAdapter) Request(ctx context.Context, req registry.Request, key string) (registry.Response, error) {
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return registry.Response{}, ctx.Err()
	}
	return registry.Response{RequestID: req.RequestID, StatusCode: 200, Success: true, Body: a.body}, nil
}

func (a *slowAdapter) HealthCheck(ctx context.Context, key string) (registry.Health, error) {
	return registry.Health{Healthy: true}, nil
}

func (a *slowAdapter) ValidateKey(ctx context.Context, key string) (bool, error) { return true, nil }

func (a *slowAdapter) Endpoints() []string { return []string{"/search"} }

type plaintextCrypto struct{}

func (plaintextCrypto) Encrypt(plaintext string) ([]byte, error)  { return []byte(plaintext), nil }
func (plaintextCrypto) Decrypt(ciphertext []byte) (string, error) { return string(ciphertext), nil }

// noopMethodology plans a fixed two-step DAG (one root step, one
// dependent synthesis step) and compiles results from whatever the
// root step produced.
type noopMethodology struct {
	rootProvider types.ServiceTag
	rootCritical bool
}

func (m noopMethodology) Plan(w *types.Workflow) ([]*types.Step, error) {
	root := &types.Step{ID: "root", Index: 0, Kind: types.StepWebSearch, Provider: m.rootProvider, Endpoint: "/search", Critical: m.rootCritical, Status: types.StepPending}
	synth := &types.Step{
		ID: "synth", Index: 1, Kind: types.StepSynthesis, Provider: m.rootProvider, Endpoint: "/search",
		DependsOn: map[string]struct{}{"root": {}}, Critical: false, Status: types.StepPending,
	}
	return []*types.Step{root, synth}, nil
}

func (m noopMethodology) Postprocess(w *types.Workflow, outputs map[string]map[string]interface{}) (*types.ResearchResults, error) {
	content := "compiled"
	if out, ok := outputs["root"]; ok {
		if c, ok := out["content"].(string); ok {
			content = c
		}
	}
	return CompileResults(w, content, outputs, map[string]string{"methodology": string(w.Methodology)}), nil
}

func newTestEngine(t *testing.T, adapter registry.Adapter) (*Engine, *keymanager.Manager) {
	t.Helper()
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register("tavily", adapter, registry.DefaultServiceConfig("tavily", "https://api.tavily.com")))

	keys := keymanager.NewManager(plaintextCrypto{}, nil, nil)
	_, err := keys.AddKey(types.ServiceTavily, "k", "secret", 1000, types.ResetHour)
	require.NoError(t, err)

	engine := NewEngine(reg, keys)
	return engine, keys
}

func runWithTimeout(t *testing.T, engine *Engine, id string, timeout time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return engine.Run(ctx, id)
}
