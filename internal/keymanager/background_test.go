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

package keymanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestration-core/shared/types"
)

func TestRunHealthSweep_ReactivatesCooldownsAndRecordsOutcomes(t *testing.T) {
	m := newTestManager()
	key, _ := m.AddKey(types.ServiceExa, "n", "secret-value", 100, types.ResetHour)
	metrics, _ := m.store.metricsFor(key.ID)
	past := time.Now().Add(-time.Second)
	metrics.Health = types.HealthCooldown
	metrics.CooldownUntil = &past

	var checkedService, checkedSecret string
	checker := func(ctx context.Context, service, secret string) bool {
		checkedService, checkedSecret = service, secret
		return true
	}

	m.RunHealthSweep(context.Background(), checker)

	assert.Equal(t, "exa", checkedService)
	assert.Equal(t, "secret-value", checkedSecret)
	assert.Equal(t, types.HealthHealthy, metrics.Health)
}

func TestStartBackgroundTasks_StopsOnContextCancel(t *testing.T) {
	m := newTestManager()
	ctx, cancel := context.WithCancel(context.Background())

	reports := make(chan string, 1)
	m.StartBackgroundTasks(ctx, func(context.Context, string, string) bool { return true }, func(r string) {
		select {
		case reports <- r:
		default:
		}
	})

	cancel()
	// Allow the goroutines' select to observe ctx.Done(); nothing should
	// panic or leak past this point. There's no observable side effect to
	// assert beyond graceful shutdown, since the tickers' periods are far
	// longer than a unit test's budget.
	time.Sleep(10 * time.Millisecond)
}

func TestRunTicker_FiresOnEveryTick(t *testing.T) {
	m := newTestManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hits := make(chan struct{}, 3)
	go m.runTicker(ctx, 5*time.Millisecond, func() {
		select {
		case hits <- struct{}{}:
		default:
		}
	})

	select {
	case <-hits:
	case <-time.After(time.Second):
		require.Fail(t, "ticker never fired")
	}
}
