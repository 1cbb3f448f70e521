// Package metricstore is the in-memory collection endpoint for scheduling
// widget timing samples. Samples live in a fixed-capacity FIFO ring: when the
// ring is full the oldest sample is evicted. Nothing survives a restart and
// nothing is shared between processes, so the store is only suitable for a
// single-instance deployment; aggregating across replicas needs an external
// store in front of it.
package metricstore
