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

// Package sdk provides the retry-with-backoff and circuit-breaker
// primitives the workflow engine wraps every provider call in.
//
// # Retry Logic
//
// Automatic retry with exponential backoff and jitter:
//
//	result, err := sdk.RetryWithBackoff(ctx, sdk.DefaultRetryConfig(), func() (any, error) {
//	    return client.DoRequest()
//	})
//
// # Circuit Breaker
//
// Per-service circuit breaking so a failing provider stops absorbing
// retry attempts once it has failed enough times in a row:
//
//	cb := sdk.NewCircuitBreaker("tavily", 5, 30*time.Second)
//	err := cb.Execute(ctx, func() error { return client.DoRequest() })
package sdk
