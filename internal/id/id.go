// Package id provides deterministic identifier generation for API model
// entities.
//
// EndpointID is the canonical source of endpoint identity across reloads:
// it must be stable across reordering of source files and insensitive to
// whitespace/formatting, so it is derived purely from the semantically
// significant parts of a declaration (kind, resolved path/URL, method).
package id

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// EndpointID returns a stable, deterministic identifier for an endpoint
// declaration. kind is the endpoint kind, lowercased before hashing
// ("http", "websocket", "socketio", "sse"),
// location is the resolved path or full URL, and method is the HTTP verb
// (empty for non-HTTP/SSE kinds). The result is a lowercase hex SHA-256
// digest of the tuple, joined with a separator that cannot appear in any
// of the inputs.
func EndpointID(kind, location, method string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(kind)))
	h.Write([]byte{0})
	h.Write([]byte(location))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToUpper(method)))
	return hex.EncodeToString(h.Sum(nil))
}

// OpenAPICategoryID returns the deterministic ID for the root category
// synthesized from an imported OpenAPI document, prefixed per the spec's
// "openapi-<hash-of-source-location>" convention.
func OpenAPICategoryID(sourceLocation string) string {
	h := sha256.New()
	h.Write([]byte(sourceLocation))
	return "openapi-" + hex.EncodeToString(h.Sum(nil))[:16]
}
