// Package bookstore is a complete example resource: a Book entity, its
// schemas and a router with one extension endpoint.
package bookstore
