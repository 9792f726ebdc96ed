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

// Package registry is the provider registry and adapter layer (C1):
// a closed set of named adapters, one per external research service,
// behind a single generic Request/Response contract. No adapter ever
// panics or returns a non-2xx response or a transport failure as a Go
// error — only adapter misuse and registry-level failures are errors.
package registry

import (
	"context"
	"time"
)

// Request is the generic envelope every adapter call receives.
type Request struct {
	RequestID string
	Service   string
	Endpoint  string
	Method    string
	Headers   map[string]string
	Body      map[string]interface{}
	TimeoutMS int64
	Retries   int
	Metadata  map[string]interface{}
}

// Response is the generic envelope every adapter call returns. Success
// is false (not an error) for any non-2xx status.
type Response struct {
	RequestID    string
	StatusCode   int
	Headers      map[string]string
	Body         map[string]interface{}
	ResponseMS   int64
	Success      bool
	ErrorMessage string
	Metadata     map[string]interface{}
	Timestamp    time.Time
}

// Health is the result of an adapter health check.
type Health struct {
	Healthy   bool
	LatencyMS int64
	Detail    string
	CheckedAt time.Time
}

// Adapter is the capability every registered provider must implement.
// Request must respect the caller's timeout within about one scheduler
// tick and must never panic: transport failures surface as a Response
// with Success=false, never as a returned error, except for adapter
// misuse (AdapterViolation) which the registry treats as fatal to that
// single request only.
type Adapter interface {
	Request(ctx context.Context, req Request, key string) (Response, error)
	HealthCheck(ctx context.Context, key string) (Health, error)
	ValidateKey(ctx context.Context, key string) (bool, error)
	Endpoints() []string
}
