// Package api contains the HTTP handlers of the producer surface: task
// submission and status lookup. Handlers translate between the JSON
// request/response shapes and the lifecycle manager, mapping the error
// taxonomy onto status codes (missing or expired task -> 404, store
// unreachable -> 503).
package api
