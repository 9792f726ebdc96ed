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

package runtime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"research-orchestration-core/internal/keymanager"
	"research-orchestration-core/internal/methodology"
	"research-orchestration-core/internal/persistence"
	"research-orchestration-core/internal/queue"
	"research-orchestration-core/internal/registry"
	"research-orchestration-core/internal/workflow"
	"research-orchestration-core/shared/logger"
	"research-orchestration-core/shared/types"
)

// Runtime owns every wired collaborator and the HTTP shell exposing
// them. There is no package-scope state anywhere in this package;
// everything a request handler touches hangs off this struct.
type Runtime struct {
	cfg         Config
	registry    *registry.Registry
	keys        *keymanager.Manager
	engine      *workflow.Engine
	queue       *queue.Queue
	store       persistence.Persistence
	crypto      persistence.Crypto
	log         *logger.Logger
	httpServer  *http.Server
	cancelWork  context.CancelFunc
}

// NewRuntime wires the registry (C1), key manager (C2), workflow
// engine (C3), queue controller (C4) and methodology library (C5)
// together per cfg.
func NewRuntime(ctx context.Context, cfg Config) (*Runtime, error) {
	log := logger.New("runtime")

	crypto, err := buildCrypto(cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := buildPersistence(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var cache *keymanager.RedisCache
	if cfg.RedisAddr != "" {
		cache, err = keymanager.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, types.NewError(types.ConnectionFailed, "runtime", "NewRuntime", "failed to connect to redis", err)
		}
	}

	reg, err := buildRegistry(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	keys := keymanager.NewManager(crypto, store, cache)

	engine := workflow.NewEngine(reg, keys)
	engine.SetPersistence(store)
	for name, m := range methodology.All() {
		engine.RegisterMethodology(name, m)
	}

	budget := types.NewResourceBudget(cfg.ResourceLimits)
	q := queue.NewQueue(budget, engine, queue.WithMaxConcurrent(cfg.MaxConcurrent))

	return &Runtime{
		cfg:      cfg,
		registry: reg,
		keys:     keys,
		engine:   engine,
		queue:    q,
		store:    store,
		crypto:   crypto,
		log:      log,
	}, nil
}

// buildRegistry registers the closed set of six provider adapters
// against their default service configs. When cfg.BedrockRegion is
// set, the openrouter slot is filled by the Bedrock-backed adapter
// instead of the plain HTTP one, so ai_analysis/ai_summary/synthesis
// steps route through AWS Bedrock without the methodology or engine
// layers knowing the difference — both satisfy the same Adapter
// contract under the same "openrouter" service tag.
func buildRegistry(ctx context.Context, cfg Config, log *logger.Logger) (*registry.Registry, error) {
	reg := registry.NewRegistry()
	adapters := []struct {
		tag     string
		baseURL string
		build   func(*registry.ServiceConfig) registry.Adapter
	}{
		{"openrouter", "https://openrouter.ai/api/v1", registry.NewOpenRouterAdapter},
		{"serpapi", "https://serpapi.com", registry.NewSerpAPIAdapter},
		{"jina", "https://api.jina.ai", registry.NewJinaAdapter},
		{"firecrawl", "https://api.firecrawl.dev", registry.NewFirecrawlAdapter},
		{"tavily", "https://api.tavily.com", registry.NewTavilyAdapter},
		{"exa", "https://api.exa.ai", registry.NewExaAdapter},
	}
	for _, a := range adapters {
		svcCfg := registry.DefaultServiceConfig(a.tag, a.baseURL)
		_ = reg.Register(a.tag, a.build(svcCfg), svcCfg)
	}

	if cfg.BedrockRegion != "" {
		bedrock, err := registry.NewBedrockAdapter(ctx, cfg.BedrockRegion)
		if err != nil {
			return nil, types.NewError(types.ConnectionFailed, "runtime", "buildRegistry", "failed to build bedrock adapter", err)
		}
		svcCfg := registry.DefaultServiceConfig("openrouter", "")
		if err := reg.Register("openrouter", bedrock, svcCfg); err != nil {
			return nil, types.NewError(types.InvalidConfiguration, "runtime", "buildRegistry", "failed to register bedrock adapter", err)
		}
		log.Info("routing openrouter service through AWS Bedrock", map[string]interface{}{"region": cfg.BedrockRegion})
	}
	return reg, nil
}

// buildCrypto constructs the AES-GCM Crypto collaborator from a
// hex-encoded 32-byte key. If none is configured, a random key is
// generated for the life of the process; this is only suitable for
// local development, never for a deployment that must decrypt keys
// written by a prior process.
func buildCrypto(cfg Config, log *logger.Logger) (persistence.Crypto, error) {
	var keyBytes []byte
	if cfg.EncryptionKeyHex != "" {
		decoded, err := hex.DecodeString(cfg.EncryptionKeyHex)
		if err != nil {
			return nil, types.NewError(types.InvalidConfiguration, "runtime", "buildCrypto", "ENCRYPTION_KEY_HEX is not valid hex", err)
		}
		keyBytes = decoded
	} else {
		keyBytes = make([]byte, 32)
		if _, err := rand.Read(keyBytes); err != nil {
			return nil, types.NewError(types.InvalidConfiguration, "runtime", "buildCrypto", "failed to generate development key", err)
		}
		log.Warn("ENCRYPTION_KEY_HEX not set; generated an ephemeral development key", nil)
	}
	return persistence.NewAESGCMCrypto(keyBytes)
}

// buildPersistence chooses Postgres when DATABASE_URL is set, an
// in-memory store otherwise.
func buildPersistence(ctx context.Context, cfg Config) (persistence.Persistence, error) {
	if cfg.DatabaseURL == "" {
		return persistence.NewMemoryStore(), nil
	}
	return persistence.NewPostgresStore(ctx, persistence.Config{ConnectionURL: cfg.DatabaseURL})
}

// Start brings up every background loop (queue admission, key-manager
// health sweeps) and the HTTP server, then blocks until the server
// fails or Shutdown closes it. Cancelling ctx stops the background
// loops but not the HTTP server. Shutdown is not called automatically;
// callers own the decision to stop.
func (rt *Runtime) Start(ctx context.Context) error {
	workCtx, cancel := context.WithCancel(ctx)
	rt.cancelWork = cancel

	if err := rt.queue.Start("runtime startup"); err != nil {
		cancel()
		return err
	}
	rt.queue.Run(workCtx)
	rt.keys.StartBackgroundTasks(workCtx, rt.healthCheck, rt.emitUsageReport)

	rt.httpServer = &http.Server{
		Addr:    ":" + rt.cfg.Port,
		Handler: rt.buildRouter(),
	}
	rt.log.Info("runtime starting", map[string]interface{}{"port": rt.cfg.Port})

	err := rt.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and every background loop, in that
// order, each bounded by ctx.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	var err error
	if rt.httpServer != nil {
		err = rt.httpServer.Shutdown(ctx)
	}
	if rt.cancelWork != nil {
		rt.cancelWork()
	}
	if closer, ok := rt.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	return err
}

// healthCheck adapts the registry's adapter-level ValidateKey into the
// key manager's background HealthChecker shape.
func (rt *Runtime) healthCheck(ctx context.Context, service, key string) bool {
	adapter, err := rt.registry.Get(service)
	if err != nil {
		return false
	}
	ok, err := adapter.ValidateKey(ctx, key)
	return err == nil && ok
}

// emitUsageReport is the background task's report sink; for now it
// logs the daily usage report the same way the core logs everything
// else, leaving a real analytics sink as an EventSink wiring point.
func (rt *Runtime) emitUsageReport(report string) {
	rt.log.Info("daily usage report generated", map[string]interface{}{"report": report})
}
