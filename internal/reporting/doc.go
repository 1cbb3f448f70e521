// Package reporting buffers widget timing samples produced by the perf
// recorder and fans them out in batches to pluggable sinks: the in-memory
// metrics store, a remote collector endpoint, Prometheus, structured logs and
// an optional Pub/Sub topic. Emit never blocks; a full buffer drops samples.
package reporting
