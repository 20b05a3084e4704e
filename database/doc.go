// Package database resolves the engine URL template into a bun connection,
// manages the pool and its health, classifies SQL errors and creates tables
// for registered entities.
package database
