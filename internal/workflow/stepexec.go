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

package workflow

import (
	"context"
	"fmt"
	"time"

	"research-orchestration-core/connectors/sdk"
	"research-orchestration-core/internal/registry"
	"research-orchestration-core/shared/types"
)

// backoffInterval returns the first retry wait for a step kind. LLM
// calls (ai_analysis/ai_summary/synthesis) back off more slowly than
// plain HTTP search/extraction calls: a model-overloaded provider
// sheds load for longer than a rate-limited search API does.
func backoffInterval(kind types.StepKind) time.Duration {
	switch kind {
	case types.StepAIAnalysis, types.StepAISummary, types.StepSynthesis:
		return 500 * time.Millisecond
	default:
		return 200 * time.Millisecond
	}
}

// backoffCeiling returns the max retry wait for a step kind, paired
// with backoffInterval.
func backoffCeiling(kind types.StepKind) time.Duration {
	switch kind {
	case types.StepAIAnalysis, types.StepAISummary, types.StepSynthesis:
		return 15 * time.Second
	default:
		return 5 * time.Second
	}
}

// executeStep dispatches one step to its provider through the registry,
// under a per-service circuit breaker and exponential-backoff retry,
// reporting the outcome back to the key manager on every attempt.
func (e *Engine) executeStep(ctx context.Context, w *types.Workflow, s *types.Step) {
	now := time.Now()
	s.Status = types.StepRunning
	s.StartedAt = &now

	service := string(s.Provider)
	retryCfg := &sdk.RetryConfig{
		MaxRetries:      e.maxRetries(w),
		InitialInterval: backoffInterval(s.Kind),
		MaxInterval:     backoffCeiling(s.Kind),
		Multiplier:      2.0,
		Jitter:          0.1,
		RetryIf:         sdk.DefaultRetryCondition,
	}
	breaker := e.circuitBreakerFor(service)
	rs := e.getRunState(w.ID)

	var resp registry.Response
	var keyID string
	attempts := 0

	_, err := sdk.RetryWithBackoff(ctx, retryCfg, func() (struct{}, error) {
		if rs.isCancelled() {
			return struct{}{}, &sdk.NonRetryableError{Err: fmt.Errorf("workflow %s cancelled", w.ID)}
		}
		attempts++
		key, ok := e.keys.SelectKey(service, types.StrategyHealthAware)
		if !ok {
			return struct{}{}, &sdk.NonRetryableError{Err: fmt.Errorf("no admissible key for service %s", service)}
		}
		keyID = key.ID
		secret, decErr := e.keys.TestKey(key.ID)
		if decErr != nil {
			return struct{}{}, &sdk.NonRetryableError{Err: decErr}
		}

		callErr := breaker.Execute(ctx, func() error {
			r, cErr := e.registry.Call(ctx, service, registry.Request{
				RequestID: s.ID,
				Service:   service,
				Endpoint:  s.Endpoint,
				Method:    "POST",
				Body:      s.Input,
				TimeoutMS: 30000,
			}, secret)
			resp = r
			e.keys.RecordRequest(key.ID)
			if cErr != nil {
				e.keys.RecordOutcome(key.ID, false, float64(r.ResponseMS))
				return cErr
			}
			e.keys.RecordOutcome(key.ID, r.Success, float64(r.ResponseMS))
			if !r.Success {
				return fmt.Errorf("provider %s returned non-2xx: %s", service, r.ErrorMessage)
			}
			return nil
		})
		return struct{}{}, callErr
	})

	s.Attempts = attempts
	completed := time.Now()
	s.CompletedAt = &completed

	if err != nil {
		s.Status = types.StepFailed
		s.Error = err.Error()
		e.log.Error("step failed", map[string]interface{}{
			"workflow_id": w.ID, "step_id": s.ID, "provider": service, "key_id": keyID, "error": err.Error(),
		})
		return
	}

	s.Status = types.StepCompleted
	s.Output = resp.Body
}
