// Package middleware provides HTTP middleware for the media forensics service.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Response compression (gzip, deflate)
//   - Configurable filtering for static files and health checks
package middleware
