// Package observe provides observability primitives for device links.
//
// It is a pure instrumentation library: no connection management, no
// transport I/O beyond exporter setup. Consumers wire the observer into
// the link supervisor, the retry executor, and the device pumps.
package observe
