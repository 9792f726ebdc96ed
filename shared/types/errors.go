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

package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of error kinds the core's components
// raise. AuthenticationFailed is never fatal to a workflow; the other
// kinds each have their own propagation rule documented on the
// component that raises them.
type ErrorKind string

const (
	KeyNotFound            ErrorKind = "key_not_found"
	InvalidConfiguration   ErrorKind = "invalid_configuration"
	RateLimitExceeded      ErrorKind = "rate_limit_exceeded"
	AuthenticationFailed   ErrorKind = "authentication_failed"
	ConnectionFailed       ErrorKind = "connection_failed"
	ExternalServiceError   ErrorKind = "external_service_error"
	InvalidOperation       ErrorKind = "invalid_operation"
	ResourceLimitExceeded  ErrorKind = "resource_limit_exceeded"
	WorkflowNotFound       ErrorKind = "workflow_not_found"
	MethodologyNotFound    ErrorKind = "methodology_not_found"
	UnsupportedProvider    ErrorKind = "unsupported_provider"
	InvalidStepType        ErrorKind = "invalid_step_type"
	UnknownService         ErrorKind = "unknown_service"
	AdapterViolation       ErrorKind = "adapter_violation"
)

// CoreError is the core's single error type: a closed Kind plus the
// component that raised it, the operation being attempted, a
// human-readable reason, and an optional wrapped cause.
type CoreError struct {
	Kind      ErrorKind
	Component string
	Operation string
	Message   string
	Cause     error
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s.%s: %s (%s): %v", e.Component, e.Operation, e.Message, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s.%s: %s (%s)", e.Component, e.Operation, e.Message, e.Kind)
}

func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is comparison against a CoreError with a matching
// Kind, ignoring Component/Operation/Message/Cause.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError constructs a CoreError.
func NewError(kind ErrorKind, component, operation, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Component: component, Operation: operation, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from err if it is (or wraps) a
// CoreError, reporting ok=false otherwise.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
