// Package api implements the read-only HTTP status server for linkbeat.
//
// Endpoints:
//   - GET /api/v1/health: liveness and version
//   - GET /api/v1/status: link state, orchestrator snapshot and session counters
//   - GET /api/v1/metrics: runtime statistics and dependency health
//
// The server never changes device state; every handler reads published
// snapshots or thread-safe accessors.
package api
