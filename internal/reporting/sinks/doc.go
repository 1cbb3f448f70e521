// Package sinks implements the reporting.Sink consumers: the in-memory metrics
// store, a remote HTTP collector, Prometheus collectors, structured logs and a
// Pub/Sub topic.
package sinks
