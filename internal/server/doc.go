// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the locktower HTTP API.
//
// # Endpoints
//
//   - POST /v1/locks/acquire  - Acquire a read or write lock (blocks)
//   - POST /v1/locks/release  - Release held locks for a session
//   - POST /v1/simulate/read  - Hold a read lock under a synthetic session
//   - POST /v1/simulate/write - Hold a write lock under a synthetic session
//   - POST /v1/unlock         - Force-unlock one resource
//   - POST /v1/clear          - Force-unlock every resource
//   - GET  /v1/status         - Held locks and table statistics
//   - GET  /v1/queue          - Waiting requests in arrival order
//   - GET  /v1/audit          - Recent audit trail
//   - GET  /v1/events         - Audit stream over Server-Sent Events
//   - GET  /v1/events/ws      - Audit stream over WebSocket
//   - GET  /health            - Health check
//   - GET  /metrics           - Prometheus metrics (when enabled)
//
// Acquire calls block until the lock is granted or the wait fails; the
// failure maps onto the status code (408 timeout, 409 cancelled, 400
// invalid resource). Every other endpoint responds immediately.
//
// # Security Features
//
//   - Bearer token authentication with constant-time comparison
//   - Per-client rate limiting
//   - CORS headers for browser dashboards
//   - Security headers (X-Content-Type-Options, X-Frame-Options, etc.)
//
// # Key Types
//
//   - Server: HTTP server with router and middleware
//
// # Usage
//
//	srv := server.New(cfg, mgr, rec).WithStore(store).WithRegistry(reg)
//	go func() {
//		if err := srv.Start(); err != nil {
//			log.Fatal(err)
//		}
//	}()
//	...
//	srv.Shutdown(ctx)
package server
