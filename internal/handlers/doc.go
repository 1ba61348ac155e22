// Package handlers implements the HTTP surface: asset upload and link
// submission, the read-only asset views, analysis lifecycle triggers,
// preview serving, history, and the health/version endpoints.
package handlers
