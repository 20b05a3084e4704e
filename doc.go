// Package easycrud turns an entity type and its read, create and update
// schemas into a REST resource backed by bun.
//
// The building blocks live in subpackages: entity for the base columns,
// repository for the store operations, router for the HTTP endpoints and
// database for the engine configuration. Service and NewAPI wire them to the
// process-wide database.
package easycrud
