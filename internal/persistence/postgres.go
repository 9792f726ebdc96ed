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
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver

	"research-orchestration-core/shared/logger"
	"research-orchestration-core/shared/types"
)

// Config configures a PostgresStore's connection pool. Zero-valued
// fields fall back to the same defaults as the provider registry's own
// connectors.
type Config struct {
	ConnectionURL   string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	return c
}

// PostgresStore is the durable Persistence implementation backed by
// PostgreSQL. It expects three tables already migrated: api_keys,
// workflows, usage_events (see schema.sql).
type PostgresStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewPostgresStore opens and pings a connection pool against cfg.
func NewPostgresStore(ctx context.Context, cfg Config) (*PostgresStore, error) {
	cfg = cfg.withDefaults()

	db, err := sql.Open("postgres", cfg.ConnectionURL)
	if err != nil {
		return nil, types.NewError(types.ConnectionFailed, "persistence", "NewPostgresStore", "failed to open connection", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return nil, types.NewError(types.ConnectionFailed, "persistence", "NewPostgresStore", "failed to ping database", err)
	}

	return &PostgresStore{db: db, log: logger.New("persistence")}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// StoreKey upserts a key row. The encrypted secret is stored as-is;
// this store never sees plaintext.
func (s *PostgresStore) StoreKey(key *types.ApiKey) error {
	_, err := s.db.Exec(`
		INSERT INTO api_keys (
			id, service, name, encrypted_secret, quota, reset_period,
			usage_count, last_used, last_reset, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			service = EXCLUDED.service,
			name = EXCLUDED.name,
			encrypted_secret = EXCLUDED.encrypted_secret,
			quota = EXCLUDED.quota,
			reset_period = EXCLUDED.reset_period,
			usage_count = EXCLUDED.usage_count,
			last_used = EXCLUDED.last_used,
			last_reset = EXCLUDED.last_reset,
			status = EXCLUDED.status
	`, key.ID, string(key.Service), key.Name, key.EncryptedSecret, key.Quota, string(key.ResetPeriod),
		key.UsageCount, key.LastUsed, key.LastReset, string(key.Status))
	if err != nil {
		return types.NewError(types.ConnectionFailed, "persistence", "StoreKey", "insert failed", err)
	}
	return nil
}

// DeleteKey removes a key row.
func (s *PostgresStore) DeleteKey(id string) error {
	_, err := s.db.Exec(`DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return types.NewError(types.ConnectionFailed, "persistence", "DeleteKey", "delete failed", err)
	}
	return nil
}

// GetAllKeys returns every key row.
func (s *PostgresStore) GetAllKeys() ([]*types.ApiKey, error) {
	rows, err := s.db.Query(`
		SELECT id, service, name, encrypted_secret, quota, reset_period,
			usage_count, last_used, last_reset, status
		FROM api_keys
	`)
	if err != nil {
		return nil, types.NewError(types.ConnectionFailed, "persistence", "GetAllKeys", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.ApiKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, types.NewError(types.ConnectionFailed, "persistence", "GetAllKeys", "scan failed", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// GetKey returns one key row by id.
func (s *PostgresStore) GetKey(id string) (*types.ApiKey, error) {
	row := s.db.QueryRow(`
		SELECT id, service, name, encrypted_secret, quota, reset_period,
			usage_count, last_used, last_reset, status
		FROM api_keys WHERE id = $1
	`, id)
	k, err := scanKey(row)
	if err == sql.ErrNoRows {
		return nil, types.NewError(types.KeyNotFound, "persistence", "GetKey", "no such key: "+id, nil)
	}
	if err != nil {
		return nil, types.NewError(types.ConnectionFailed, "persistence", "GetKey", "scan failed", err)
	}
	return k, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanKey(row rowScanner) (*types.ApiKey, error) {
	var k types.ApiKey
	var service, resetPeriod, status string
	if err := row.Scan(&k.ID, &service, &k.Name, &k.EncryptedSecret, &k.Quota, &resetPeriod,
		&k.UsageCount, &k.LastUsed, &k.LastReset, &status); err != nil {
		return nil, err
	}
	k.Service = types.ServiceTag(service)
	k.ResetPeriod = types.ResetPeriod(resetPeriod)
	k.Status = types.KeyStatus(status)
	return &k, nil
}

// GetWorkflow loads a workflow's JSON snapshot and unmarshals it.
func (s *PostgresStore) GetWorkflow(id string) (*types.Workflow, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT data FROM workflows WHERE id = $1`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, types.NewError(types.WorkflowNotFound, "persistence", "GetWorkflow", "no such workflow: "+id, nil)
	}
	if err != nil {
		return nil, types.NewError(types.ConnectionFailed, "persistence", "GetWorkflow", "query failed", err)
	}
	var w types.Workflow
	if err := json.Unmarshal(blob, &w); err != nil {
		return nil, types.NewError(types.ConnectionFailed, "persistence", "GetWorkflow", "unmarshal failed", err)
	}
	return &w, nil
}

// StoreWorkflow upserts a workflow's full JSON snapshot, keeping a few
// columns denormalized for indexable lookups.
func (s *PostgresStore) StoreWorkflow(w *types.Workflow) error {
	blob, err := json.Marshal(w)
	if err != nil {
		return types.NewError(types.ConnectionFailed, "persistence", "StoreWorkflow", "marshal failed", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO workflows (id, methodology, status, created_at, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			methodology = EXCLUDED.methodology,
			status = EXCLUDED.status,
			data = EXCLUDED.data
	`, w.ID, string(w.Methodology), string(w.Status), w.CreatedAt, blob)
	if err != nil {
		return types.NewError(types.ConnectionFailed, "persistence", "StoreWorkflow", "insert failed", err)
	}
	return nil
}

// RecordAPIUsage inserts one usage event. Errors are logged as well as
// returned, matching the write-path's log-but-don't-block convention
// for usage accounting.
func (s *PostgresStore) RecordAPIUsage(keyID string, service types.ServiceTag, endpoint string, success bool, responseTimeMS float64) error {
	_, err := s.db.Exec(`
		INSERT INTO usage_events (key_id, service, endpoint, success, response_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, keyID, string(service), nullString(endpoint), success, responseTimeMS, time.Now().UTC())
	if err != nil {
		s.log.ErrorWithErr("failed to record api usage", err, map[string]interface{}{"key_id": keyID})
	}
	return err
}

// GetUsageStats rolls usage_events up to one row per day over the
// trailing window, most recent day first.
func (s *PostgresStore) GetUsageStats(keyID string, days int) ([]UsageStat, error) {
	rows, err := s.db.Query(`
		SELECT
			to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day,
			count(*) AS total,
			count(*) FILTER (WHERE success) AS success,
			count(*) FILTER (WHERE NOT success) AS fail,
			avg(response_time_ms) AS avg_ms
		FROM usage_events
		WHERE key_id = $1 AND created_at >= now() - make_interval(days => $2)
		GROUP BY day
		ORDER BY day DESC
	`, keyID, days)
	if err != nil {
		return nil, types.NewError(types.ConnectionFailed, "persistence", "GetUsageStats", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	var out []UsageStat
	for rows.Next() {
		var st UsageStat
		if err := rows.Scan(&st.Day, &st.Total, &st.Success, &st.Fail, &st.AvgResponseMS); err != nil {
			return nil, types.NewError(types.ConnectionFailed, "persistence", "GetUsageStats", "scan failed", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// nullString converts an empty string to NULL for database insertion,
// e.g. for usage events recorded without an endpoint.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
