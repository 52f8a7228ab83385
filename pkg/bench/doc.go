// Package bench drives pkg/shm transfers as a throughput benchmark: it
// provides the payload sources, checksums the received data, and turns a
// consumer result into the report line and Prometheus samples.
package bench
