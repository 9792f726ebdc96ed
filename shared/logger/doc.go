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

/*
Package logger provides structured JSON logging for the research
orchestration core's components.

# Overview

The logger package outputs one JSON object per line through the
standard library's log package (stderr by default, after log's
date/time prefix), making logs easily consumable by any log
aggregation system.

Each log entry includes:
  - Timestamp (RFC3339Nano format)
  - Log level (DEBUG, INFO, WARN, ERROR)
  - Component name (registry, keymanager, workflow, queue, ...)
  - Instance ID
  - Custom fields

# Usage

	log := logger.New("keymanager")

	log.Info("key admitted", map[string]interface{}{
	    "key_id": key.ID,
	    "service": key.Service,
	})

	log.ErrorWithErr("adapter call failed", err, map[string]interface{}{
	    "provider": "tavily",
	})

	start := time.Now()
	// ... do work ...
	log.WithDuration("step dispatched", time.Since(start), nil)

# Output Format

	{"timestamp":"2025-01-15T10:30:00.123456789Z","level":"INFO",
	 "component":"keymanager","instance_id":"i-abc123",
	 "message":"key admitted","fields":{"key_id":"k-1"}}

# Thread Safety

Logger instances are safe for concurrent use from multiple goroutines.
*/
package logger
