// Package ipc implements JSON-RPC over a Unix domain socket for
// communication between the CLI and the daemon: run submission, status,
// listing, and inspection.
package ipc
