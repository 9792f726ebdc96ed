// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoreErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewError(ConnectionFailed, "registry", "Request", "provider unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "provider unreachable")
	assert.Contains(t, err.Error(), "connection_failed")
}

func TestCoreErrorIsMatchesOnKind(t *testing.T) {
	a := NewError(RateLimitExceeded, "keymanager", "Admit", "quota exhausted", nil)
	b := NewError(RateLimitExceeded, "keymanager", "Admit", "different message", nil)
	c := NewError(KeyNotFound, "keymanager", "Get", "no such key", nil)

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestKindOf(t *testing.T) {
	err := NewError(WorkflowNotFound, "workflow", "Get", "no such workflow", nil)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, WorkflowNotFound, kind)

	_, ok = KindOf(errors.New("plain error"))
	assert.False(t, ok)
}
