// Package database is the SQLite catalog behind the delivery layer.
//
// It stores libraries, probed media metadata, users with per-library
// access grants, and login sessions. Every query runs under a per-call
// timeout and records Prometheus query metrics.
package database
