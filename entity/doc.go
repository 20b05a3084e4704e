// Package entity defines the persisted base shared by every resource: an
// auto-increment id, server-assigned create and last-modified timestamps, and
// the rule that maps a Go type name to its table name.
package entity
