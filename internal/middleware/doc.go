// Package middleware provides HTTP middleware for the media library server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with bounded path labels
//   - gzip compression for playlists and JSON (never for range requests)
package middleware
