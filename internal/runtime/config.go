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

// Package runtime wires the core's five components (C1-C5) into one
// owned Runtime and exposes them over HTTP. Unlike the teacher's
// package-scope globals, every collaborator here is a field on
// Runtime, built once by NewRuntime and torn down once by Shutdown.
package runtime

import (
	"os"
	"strconv"
	"time"

	"research-orchestration-core/shared/types"
)

// Config is the runtime's env-driven bootstrap configuration.
type Config struct {
	Port             string
	DatabaseURL      string
	EncryptionKeyHex string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	MaxConcurrent    int
	BedrockRegion    string
	ResourceLimits   map[types.ResourceDimension]float64
}

// LoadConfigFromEnv reads Config from the process environment, the
// way the teacher's orchestrator.Run bootstraps its own PORT/
// DATABASE_URL/etc, falling back to locally-safe defaults everywhere
// an operator hasn't set one.
func LoadConfigFromEnv() Config {
	return Config{
		Port:             getEnv("PORT", "8081"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		EncryptionKeyHex: os.Getenv("ENCRYPTION_KEY_HEX"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		MaxConcurrent:    getEnvInt("MAX_CONCURRENT_WORKFLOWS", 5),
		BedrockRegion:    os.Getenv("BEDROCK_REGION"),
		ResourceLimits:   defaultResourceLimits(),
	}
}

func defaultResourceLimits() map[types.ResourceDimension]float64 {
	return map[types.ResourceDimension]float64{
		types.ResourceMemoryMB:           4096,
		types.ResourceCPUPercent:         400,
		types.ResourceAPICallsPerHour:    10000,
		types.ResourceConcurrentRequests: 20,
		types.ResourceBandwidthMbps:      500,
		types.ResourceStorageMB:          2048,
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

const shutdownGrace = 10 * time.Second
