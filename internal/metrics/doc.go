// Package metrics provides observability hooks for mdsite builds.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks anywhere. The
// Prometheus implementation is wired in by serve mode, which exposes the
// registry over /metrics.
package metrics
