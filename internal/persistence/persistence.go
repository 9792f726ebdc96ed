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

// Package persistence is the core's external collaborator surface for
// durable state: keys, workflows, and per-key usage history. Every
// other component only ever talks to the narrow Persistence/Crypto
// interfaces it depends on; this package supplies a Postgres-backed
// implementation plus an in-memory one for tests and local runs.
package persistence

import (
	"time"

	"research-orchestration-core/shared/types"
)

// Persistence is the durable store the core writes keys and workflows
// through and reads usage history back from. The key manager (C2) and
// workflow engine (C3) each depend on a narrower slice of this
// interface; a complete Store satisfies both structurally.
type Persistence interface {
	StoreKey(key *types.ApiKey) error
	DeleteKey(id string) error
	GetAllKeys() ([]*types.ApiKey, error)
	GetKey(id string) (*types.ApiKey, error)

	GetWorkflow(id string) (*types.Workflow, error)
	StoreWorkflow(w *types.Workflow) error

	RecordAPIUsage(keyID string, service types.ServiceTag, endpoint string, success bool, responseTimeMS float64) error
	GetUsageStats(keyID string, days int) ([]UsageStat, error)
}

// Crypto is the opaque encryption collaborator a key's secret is
// round-tripped through. The shape matches keymanager.Crypto exactly
// so any Crypto implementation here is a drop-in for it.
type Crypto interface {
	Encrypt(plaintext string) ([]byte, error)
	Decrypt(ciphertext []byte) (string, error)
}

// EventSink is the optional analytics collaborator. The core behaves
// identically whether Emit does something or nothing; NoopSink exists
// for callers that don't wire a real one.
type EventSink interface {
	Emit(event Event) error
}

// Event is one analytics-facing fact the core reports, opaque beyond
// its type tag and data payload.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// UsageStat is one day's rollup of a single key's call volume and
// latency, as returned by GetUsageStats.
type UsageStat struct {
	Day           string  `json:"day"`
	Total         int64   `json:"total"`
	Success       int64   `json:"success"`
	Fail          int64   `json:"fail"`
	AvgResponseMS float64 `json:"avg_response_ms"`
}

// NoopSink discards every event. It is the default EventSink so the
// core never has to nil-check before emitting.
type NoopSink struct{}

// Emit does nothing and never fails.
func (NoopSink) Emit(Event) error { return nil }
