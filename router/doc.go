// Package router exposes a repository as a fixed set of REST endpoints on a
// gin router group. Absent entities are returned as JSON null with status 200;
// bad input and store failures are answered with problem details.
package router
