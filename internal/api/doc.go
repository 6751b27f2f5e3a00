// Package api provides the JSON HTTP surface of the assistant.
//
// Endpoints:
//
//	POST /api/v1/message        →  run one conversational turn
//	POST /api/v1/session/start  →  open a session (capability rundown)
//	GET  /health                →  liveness probe
//	GET  /ready                 →  readiness probe (pings the database)
//
// File structure:
//   - server.go: route table, middleware stack, server lifecycle
//   - message.go: conversational endpoints
//   - middleware.go: recovery, request id, logging, CORS
//   - ratelimit.go: per-IP token bucket
//   - health.go: probes
//   - response.go: JSON response helpers
package api
