// Package repository implements the generic CRUD operation set over bun.
//
// A Repository is parameterized by the entity type, its create schema and its
// update schema. Missing rows come back as nil without an error; store errors
// are returned unchanged so callers can classify them with database.Classify.
package repository
