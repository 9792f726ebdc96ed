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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestration-core/shared/types"
)

func TestAddKey_NormalizesServiceToLowercase(t *testing.T) {
	m := newTestManager()
	key, err := m.AddKey(types.ServiceTag("TAVILY"), "n", "s", 10, types.ResetHour)
	require.NoError(t, err)
	assert.Equal(t, types.ServiceTavily, key.Service)
}

func TestAddKey_EncryptsSecretThroughCrypto(t *testing.T) {
	m := newTestManager()
	key, err := m.AddKey(types.ServiceExa, "n", "super-secret", 10, types.ResetHour)
	require.NoError(t, err)
	assert.NotNil(t, key.EncryptedSecret)

	plain, err := m.TestKey(key.ID)
	require.NoError(t, err)
	assert.Equal(t, "super-secret", plain)
}

func TestUpdateKey_MutatesOnlyProvidedFields(t *testing.T) {
	m := newTestManager()
	key, _ := m.AddKey(types.ServiceExa, "n", "s", 10, types.ResetHour)

	newQuota := int64(500)
	err := m.UpdateKey(key.ID, &newQuota, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(500), key.Quota)
	assert.Equal(t, types.ResetHour, key.ResetPeriod)
}

func TestUpdateKey_UnknownIDFails(t *testing.T) {
	m := newTestManager()
	err := m.UpdateKey("missing", nil, nil, nil)
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, types.KeyNotFound, kind)
}

func TestDeleteKey_RemovesFromStoreAndPersistence(t *testing.T) {
	m := newTestManager()
	key, _ := m.AddKey(types.ServiceExa, "n", "s", 10, types.ResetHour)

	err := m.DeleteKey(key.ID)
	require.NoError(t, err)

	_, err = m.GetKey(key.ID)
	assert.Error(t, err)
}

func TestForceReset_ClearsUsageAndReactivatesExhausted(t *testing.T) {
	m := newTestManager()
	key, _ := m.AddKey(types.ServiceExa, "n", "s", 1, types.ResetHour)
	m.RecordRequest(key.ID)
	require.Equal(t, types.KeyExhausted, key.Status)

	err := m.ForceReset(key.ID)
	require.NoError(t, err)
	assert.Zero(t, key.UsageCount)
	assert.Equal(t, types.KeyActive, key.Status)
}

func TestImportCSV_SkipsInvalidRowsButImportsRest(t *testing.T) {
	m := newTestManager()
	rows := [][]string{
		{"service", "name", "key", "rate_limit"},
		{"tavily", "good", "secret1", "500"},
		{"bogus-service", "bad", "secret2", "500"},
		{"exa", "no-rate-limit", "secret3", ""},
		{"jina", "bad-rate", "secret4", "notanumber"},
	}

	result := m.ImportCSV(rows)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.Errors, 2)

	keys := m.ListKeys("")
	assert.Len(t, keys, 2)
}

func TestImportJSON_PerRecordFailureIsolation(t *testing.T) {
	m := newTestManager()
	rate := int64(200)
	records := []ImportRecord{
		{Service: "serpapi", Name: "good", APIKey: "s1", RateLimit: &rate},
		{Service: "not-a-service", Name: "bad", APIKey: "s2"},
	}

	result := m.ImportJSON(records)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
}

func TestExport_RoundTripsServiceNameRateLimit(t *testing.T) {
	m := newTestManager()
	m.AddKey(types.ServiceFirecrawl, "a", "s", 321, types.ResetDay)
	m.AddKey(types.ServiceJina, "b", "s", 654, types.ResetDay)

	records := m.Export()
	require.Len(t, records, 2)

	byName := map[string]ExportRecord{}
	for _, r := range records {
		byName[r.Name] = r
	}
	assert.Equal(t, "firecrawl", byName["a"].Service)
	assert.Equal(t, int64(321), byName["a"].RateLimit)
	assert.Equal(t, "jina", byName["b"].Service)
	assert.Equal(t, int64(654), byName["b"].RateLimit)
}

func TestIsKnownServiceName(t *testing.T) {
	assert.True(t, IsKnownServiceName("OpenRouter"))
	assert.True(t, IsKnownServiceName("exa"))
	assert.False(t, IsKnownServiceName("unknown-service"))
}

func TestGetUsageStats_ReturnsForecastAndMetrics(t *testing.T) {
	m := newTestManager()
	key, _ := m.AddKey(types.ServiceExa, "n", "s", 100, types.ResetHour)
	m.RecordRequest(key.ID)
	m.RecordOutcome(key.ID, true, 120)

	stats, err := m.GetUsageStats(key.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.UsageCount)
	assert.Equal(t, int64(100), stats.Quota)
	assert.Equal(t, types.HealthHealthy, stats.Metrics.Health)
}
