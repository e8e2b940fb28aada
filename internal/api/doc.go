// Package api defines the wire representations of queue state shared by the
// IPC protocol and the CLI renderers, plus the conversions from the internal
// queue models. Keeping the DTOs here lets the protocol evolve without
// leaking storage details to clients.
package api
