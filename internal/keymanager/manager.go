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
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"research-orchestration-core/shared/logger"
	"research-orchestration-core/shared/types"
)

// Manager is the top-level key manager (C2): key CRUD, admission,
// rotation strategy selection, and the three background tasks.
type Manager struct {
	store         *store
	crypto        Crypto
	persistence   Persistence
	cache         *RedisCache // optional, may be nil
	roundRobin    *roundRobinCounters
	emergencyStop atomic.Bool
	log           *logger.Logger
}

// NewManager builds a Manager. cache may be nil to disable the Redis
// hot-cache path and fall back to in-process counters only.
func NewManager(crypto Crypto, persistence Persistence, cache *RedisCache) *Manager {
	return &Manager{
		store:       newStore(),
		crypto:      crypto,
		persistence: persistence,
		cache:       cache,
		roundRobin:  newRoundRobinCounters(),
		log:         logger.New("keymanager"),
	}
}

// SetEmergencyStop toggles the global emergency-stop flag that blocks
// all admission regardless of individual key state.
func (m *Manager) SetEmergencyStop(stopped bool) {
	m.emergencyStop.Store(stopped)
}

// AddKey registers a new key, encrypting its secret through the
// Crypto collaborator and persisting it through the Persistence
// collaborator.
func (m *Manager) AddKey(service types.ServiceTag, name, secret string, quota int64, reset types.ResetPeriod) (*types.ApiKey, error) {
	service = types.ServiceTag(strings.ToLower(string(service)))
	encrypted, err := m.crypto.Encrypt(secret)
	if err != nil {
		return nil, types.NewError(types.InvalidConfiguration, "keymanager", "AddKey", "encrypt secret", err)
	}

	key := &types.ApiKey{
		ID:              uuid.NewString(),
		Service:         service,
		Name:            name,
		EncryptedSecret: encrypted,
		Quota:           quota,
		ResetPeriod:     reset,
		Status:          types.KeyActive,
		LastReset:       time.Now(),
	}

	m.store.put(key)
	if m.persistence != nil {
		if err := m.persistence.StoreKey(key); err != nil {
			m.log.ErrorWithErr("persist key failed", err, map[string]interface{}{"key_id": key.ID})
		}
	}
	return key, nil
}

// UpdateKey mutates the quota/reset-period/status of an existing key.
func (m *Manager) UpdateKey(id string, quota *int64, reset *types.ResetPeriod, status *types.KeyStatus) error {
	key, ok := m.store.get(id)
	if !ok {
		return types.NewError(types.KeyNotFound, "keymanager", "UpdateKey", "no such key: "+id, nil)
	}

	m.store.mu.Lock()
	if quota != nil {
		key.Quota = *quota
	}
	if reset != nil {
		key.ResetPeriod = *reset
	}
	if status != nil {
		key.Status = *status
	}
	m.store.mu.Unlock()

	if m.persistence != nil {
		if err := m.persistence.StoreKey(key); err != nil {
			m.log.ErrorWithErr("persist key update failed", err, map[string]interface{}{"key_id": id})
		}
	}
	return nil
}

// DeleteKey removes a key from memory and from persistence.
func (m *Manager) DeleteKey(id string) error {
	if _, ok := m.store.get(id); !ok {
		return types.NewError(types.KeyNotFound, "keymanager", "DeleteKey", "no such key: "+id, nil)
	}
	m.store.delete(id)
	if m.persistence != nil {
		if err := m.persistence.DeleteKey(id); err != nil {
			m.log.ErrorWithErr("delete key from persistence failed", err, map[string]interface{}{"key_id": id})
		}
	}
	return nil
}

// GetKey returns a key by id.
func (m *Manager) GetKey(id string) (*types.ApiKey, error) {
	key, ok := m.store.get(id)
	if !ok {
		return nil, types.NewError(types.KeyNotFound, "keymanager", "GetKey", "no such key: "+id, nil)
	}
	return key, nil
}

// ListKeys returns every registered key, optionally filtered by
// service tag (empty string means all services).
func (m *Manager) ListKeys(service string) []*types.ApiKey {
	if service == "" {
		return m.store.list()
	}
	return m.store.listByService(service)
}

// TestKey decrypts and returns a key's plaintext secret, for
// diagnostic "test this key" operations only.
func (m *Manager) TestKey(id string) (string, error) {
	key, ok := m.store.get(id)
	if !ok {
		return "", types.NewError(types.KeyNotFound, "keymanager", "TestKey", "no such key: "+id, nil)
	}
	return m.crypto.Decrypt(key.EncryptedSecret)
}

// ForceReset immediately resets a key's usage counter regardless of
// its reset period.
func (m *Manager) ForceReset(id string) error {
	key, ok := m.store.get(id)
	if !ok {
		return types.NewError(types.KeyNotFound, "keymanager", "ForceReset", "no such key: "+id, nil)
	}
	m.store.mu.Lock()
	key.UsageCount = 0
	key.LastReset = time.Now()
	if key.Status == types.KeyExhausted {
		key.Status = types.KeyActive
	}
	m.store.mu.Unlock()

	if m.cache != nil {
		if err := m.cache.ResetUsage(context.Background(), id); err != nil {
			m.log.ErrorWithErr("redis cache reset failed", err, map[string]interface{}{"key_id": id})
		}
	}
	return nil
}

// UsageStats reports a single key's usage count, quota, and forecast.
type UsageStats struct {
	KeyID      string
	UsageCount int64
	Quota      int64
	Forecast   UsageForecast
	Metrics    types.KeyPerformanceMetrics
}

// GetUsageStats returns current usage stats for one key.
func (m *Manager) GetUsageStats(id string) (UsageStats, error) {
	key, ok := m.store.get(id)
	if !ok {
		return UsageStats{}, types.NewError(types.KeyNotFound, "keymanager", "GetUsageStats", "no such key: "+id, nil)
	}
	metrics, _ := m.store.metricsFor(id)
	var m2 types.KeyPerformanceMetrics
	if metrics != nil {
		m2 = *metrics
	}
	return UsageStats{
		KeyID:      id,
		UsageCount: key.UsageCount,
		Quota:      key.Quota,
		Forecast:   Forecast(key, time.Now()),
		Metrics:    m2,
	}, nil
}

// ImportResult reports the outcome of a bulk CSV/JSON import.
type ImportResult struct {
	Successful int
	Failed     int
	Errors     []string
}

// ImportCSV parses a CSV document with header row and columns
// `service,name,key[,rate_limit]`. A blank rate_limit falls back to a
// per-service default of 1000. Invalid rows are skipped with their
// error recorded; the import never aborts partway.
func (m *Manager) ImportCSV(rows [][]string) ImportResult {
	result := ImportResult{}
	if len(rows) == 0 {
		return result
	}

	for i, row := range rows[1:] { // skip header
		rowNum := i + 2
		if len(row) < 3 {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: expected at least 3 columns", rowNum))
			continue
		}

		service := strings.ToLower(strings.TrimSpace(row[0]))
		name := strings.TrimSpace(row[1])
		secret := strings.TrimSpace(row[2])
		if !IsKnownServiceName(service) {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: unknown service %q", rowNum, service))
			continue
		}

		quota := int64(1000)
		if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
			v, err := strconv.ParseInt(strings.TrimSpace(row[3]), 10, 64)
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid rate_limit %q", rowNum, row[3]))
				continue
			}
			quota = v
		}

		if _, err := m.AddKey(types.ServiceTag(service), name, secret, quota, types.ResetHour); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		result.Successful++
	}
	return result
}

// ImportRecord is one entry of a JSON import array.
type ImportRecord struct {
	Service   string `json:"service"`
	Name      string `json:"name"`
	APIKey    string `json:"api_key"`
	RateLimit *int64 `json:"rate_limit,omitempty"`
}

// ImportJSON imports an array of ImportRecord, with the same
// per-record failure semantics as ImportCSV.
func (m *Manager) ImportJSON(records []ImportRecord) ImportResult {
	result := ImportResult{}
	for i, rec := range records {
		service := strings.ToLower(strings.TrimSpace(rec.Service))
		if !IsKnownServiceName(service) {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: unknown service %q", i, service))
			continue
		}
		quota := int64(1000)
		if rec.RateLimit != nil {
			quota = *rec.RateLimit
		}
		if _, err := m.AddKey(types.ServiceTag(service), rec.Name, rec.APIKey, quota, types.ResetHour); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		result.Successful++
	}
	return result
}

// ExportRecord is one row of a CSV/JSON export; it preserves
// (service, name, rate_limit) so a round-trip import→export produces
// the same multiset.
type ExportRecord struct {
	Service   string `json:"service"`
	Name      string `json:"name"`
	RateLimit int64  `json:"rate_limit"`
}

// Export returns every key as an ExportRecord, for CSV or JSON
// serialization by the caller.
func (m *Manager) Export() []ExportRecord {
	keys := m.store.list()
	out := make([]ExportRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, ExportRecord{Service: string(k.Service), Name: k.Name, RateLimit: k.Quota})
	}
	return out
}

// IsKnownServiceName reports whether tag belongs to the closed
// service-tag set used across the core.
func IsKnownServiceName(tag string) bool {
	switch types.ServiceTag(strings.ToLower(tag)) {
	case types.ServiceOpenRouter, types.ServiceSerpAPI, types.ServiceJina,
		types.ServiceFirecrawl, types.ServiceTavily, types.ServiceExa:
		return true
	default:
		return false
	}
}
