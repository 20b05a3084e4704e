// Package middleware provides the gin middleware shared by every resource:
// request logging with request ids and Prometheus HTTP metrics.
package middleware
