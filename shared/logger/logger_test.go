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

package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name           string
		component      string
		instanceID     string
		expectedInstID string
	}{
		{name: "with instance ID set", component: "keymanager", instanceID: "instance-123", expectedInstID: "instance-123"},
		{name: "without instance ID", component: "queue", instanceID: "", expectedInstID: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.instanceID != "" {
				require.NoError(t, os.Setenv("INSTANCE_ID", tt.instanceID))
				defer os.Unsetenv("INSTANCE_ID")
			} else {
				require.NoError(t, os.Unsetenv("INSTANCE_ID"))
			}

			l := New(tt.component)
			assert.Equal(t, tt.component, l.Component)
			assert.Equal(t, tt.expectedInstID, l.InstanceID)
		})
	}
}

func captureLog(t *testing.T, fn func()) LogEntry {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	fn()

	output := buf.String()
	jsonStart := strings.Index(output, "{")
	require.NotEqual(t, -1, jsonStart, "no JSON found in log output: %s", output)

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output[jsonStart:])), &entry))
	return entry
}

func TestLogLevels(t *testing.T) {
	l := New("workflow")

	tests := []struct {
		name    string
		logFunc func(string, map[string]interface{})
		level   LogLevel
	}{
		{"Info", l.Info, INFO},
		{"Error", l.Error, ERROR},
		{"Warn", l.Warn, WARN},
		{"Debug", l.Debug, DEBUG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := captureLog(t, func() {
				tt.logFunc("test message", map[string]interface{}{"key": "value"})
			})

			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, "test message", entry.Message)
			assert.Equal(t, "workflow", entry.Component)
			assert.Equal(t, "value", entry.Fields["key"])

			_, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
			assert.NoError(t, err)
		})
	}
}

func TestWithDuration(t *testing.T) {
	l := New("queue")

	entry := captureLog(t, func() {
		l.WithDuration("admission completed", 123*time.Millisecond, map[string]interface{}{"queue_depth": 4})
	})

	assert.Equal(t, INFO, entry.Level)
	assert.EqualValues(t, 123, entry.Fields["duration_ms"])
	assert.EqualValues(t, 4, entry.Fields["queue_depth"])
}

func TestErrorWithErr(t *testing.T) {
	l := New("registry")

	entry := captureLog(t, func() {
		l.ErrorWithErr("adapter call failed", errTest("connection refused"), map[string]interface{}{"provider": "tavily"})
	})

	assert.Equal(t, ERROR, entry.Level)
	assert.Equal(t, "connection refused", entry.Fields["error"])
	assert.Equal(t, "tavily", entry.Fields["provider"])
}

func TestLogMarshalFailureFallsBackSilently(t *testing.T) {
	l := New("keymanager")

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	ch := make(chan int)
	l.Info("unmarshalable field", map[string]interface{}{"channel": ch})

	assert.Contains(t, buf.String(), "failed to marshal log entry")
}

type errTest string

func (e errTest) Error() string { return string(e) }
