// Package metrics summarises response latencies of a run and exports run
// results as a Prometheus textfile for the node_exporter textfile
// collector.
package metrics
