// Package logs reads back the daemon log file for the CLI. It supports
// tail-style access: the last N lines, resuming from a byte offset, and
// short blocking waits for follow mode.
package logs
