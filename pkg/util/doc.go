// Package util provides the log-body truncation helper used across reqcraft
// packages.
//
//   - TruncateBody — cap request/response bodies for safe logging
//
// The package has no file-path validation helpers.
package util
