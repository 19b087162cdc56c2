// Package middleware provides HTTP middleware for the job API.
//
// Logger writes one W3C Extended Log Format line per request. Metrics
// records Prometheus request counters labelled by route template.
// Compression gzips JSON responses and never touches published media or
// websocket upgrades.
package middleware
