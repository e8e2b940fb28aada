// Package daemon coordinates the long-running Loom process.
//
// It wires configuration, queue storage, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances,
// and exposes the queue control operations the IPC layer serves.
//
// Keep orchestration logic here: individual enrichment steps live in their
// respective packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
