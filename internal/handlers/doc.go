// Package handlers provides the HTTP handlers of the job API.
//
// It includes handlers for:
//   - Job submission, status, listing and output download
//   - Live job status over a websocket
//   - Health, liveness, readiness and version
//   - Prometheus metrics
package handlers
