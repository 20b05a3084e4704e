// Package server assembles the gin engine that hosts resources: recovery,
// tracing, request logging and metrics middleware, plus /healthz, /metrics
// and the OpenAPI document.
package server
