// Package metrics exports spawnpoint activity as Prometheus metrics.
//
// A single Metrics value implements lifecycle.EventEmitter and
// monitor.Observer, and hands out per-queue rotation.QueueObserver values
// through Queue. All methods are safe on a nil *Metrics.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package metrics
