// Package openapi assembles the OpenAPI 3 document for registered resources
// and serves it as JSON and YAML.
package openapi
