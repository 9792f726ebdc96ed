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

package registry

import "time"

// ServiceConfig holds a provider's operating parameters. The registry
// stores one ServiceConfig per registered service and replaces it on
// UpdateConfig; an adapter keeps reading the ServiceConfig it was built
// with, so a replacement does not change how that adapter calls out.
type ServiceConfig struct {
	Service             string
	BaseURL             string
	DefaultTimeout      time.Duration
	MaxRetries          int
	RetryDelay          time.Duration
	HealthCheckEndpoint string
	HealthCheckInterval time.Duration
	RateLimitPerMinute  int
	CustomHeaders       map[string]string
	Enabled             bool
}

// DefaultServiceConfig returns sane defaults for a provider service,
// matching the teacher's ServiceConfig builder shape.
func DefaultServiceConfig(service, baseURL string) *ServiceConfig {
	return &ServiceConfig{
		Service:             service,
		BaseURL:             baseURL,
		DefaultTimeout:      25 * time.Second,
		MaxRetries:          3,
		RetryDelay:          500 * time.Millisecond,
		HealthCheckEndpoint: "/health",
		HealthCheckInterval: 5 * time.Minute,
		RateLimitPerMinute:  60,
		CustomHeaders:       map[string]string{},
		Enabled:             true,
	}
}
