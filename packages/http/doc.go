// Package http provides the HTTP client used to execute collection items.
//
// It wraps the standard library's http package with:
//   - Configurable timeouts
//   - Redirect handling
//   - Proxy and TLS verification settings
//   - Full body reads with response timing
package http
