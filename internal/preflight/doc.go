// Package preflight validates the runtime environment before work
// starts: directory permissions for the run and log roots, and optional
// LLM API reachability.
package preflight
