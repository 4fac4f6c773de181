/*
Package observability provides Prometheus metrics for the resolution
service: resolution and build counters, durations, and the size of the
last successful inventory.
*/
package observability
