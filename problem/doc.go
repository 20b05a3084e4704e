// Package problem writes RFC 7807 problem details from gin handlers and maps
// validation, decoding and store errors onto them.
package problem
