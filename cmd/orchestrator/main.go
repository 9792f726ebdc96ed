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

// Package main is the entry point for the research orchestration core.
//
// Usage:
//
//	./orchestrator
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8081)
//	DATABASE_URL - PostgreSQL connection string (optional, falls back to an in-memory store)
//	ENCRYPTION_KEY_HEX - 32-byte AES key, hex-encoded
//	REDIS_ADDR - optional Redis hot-cache address for key rotation counters
//	MAX_CONCURRENT_WORKFLOWS - queue admission concurrency cap (default: 5)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"research-orchestration-core/internal/runtime"
)

func main() {
	cfg := runtime.LoadConfigFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := runtime.NewRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("runtime init failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- rt.Start(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Fatalf("runtime exited: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
}
