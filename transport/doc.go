// Package transport defines the client capability the rest of the module is
// built on: a single broker connection that can be opened, closed, and used
// to exchange messages, plus the status and failure vocabulary shared by the
// supervisor and retry layers.
//
// It is a pure contract package: no protocol code, no I/O. Concrete
// transports live in subpackages (see transport/mqtt); tests use the
// scriptable fake in transport/transporttest.
package transport
