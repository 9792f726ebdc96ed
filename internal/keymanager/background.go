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
	"time"
)

// HealthChecker performs an adapter-level health check for a single
// key, returning whether the provider accepted it. The manager only
// depends on this narrow capability, not the whole registry, to avoid
// a cyclic package dependency between keymanager and registry.
type HealthChecker func(ctx context.Context, service, key string) bool

// RunHealthSweep checks every key's reachability via checkFn and
// reactivates any key whose cooldown has elapsed. Intended to run
// every 5 minutes.
func (m *Manager) RunHealthSweep(ctx context.Context, checkFn HealthChecker) {
	m.ReactivateExpiredCooldowns()

	for _, key := range m.store.list() {
		secret, err := m.crypto.Decrypt(key.EncryptedSecret)
		if err != nil {
			continue
		}
		healthy := checkFn(ctx, string(key.Service), secret)
		m.RecordOutcome(key.ID, healthy, 0)
	}
}

// StartBackgroundTasks launches the three periodic goroutines: a
// 5-minute health sweep, an hourly alert prune, and a daily usage
// report emission. All three stop when ctx is cancelled.
func (m *Manager) StartBackgroundTasks(ctx context.Context, checkFn HealthChecker, emitReport func(report string)) {
	go m.runTicker(ctx, 5*time.Minute, func() { m.RunHealthSweep(ctx, checkFn) })
	go m.runTicker(ctx, time.Hour, m.PruneAlerts)
	go m.runTicker(ctx, 24*time.Hour, func() {
		if emitReport != nil {
			emitReport(m.UsageReport())
		}
	})
}

func (m *Manager) runTicker(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
