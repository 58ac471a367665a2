// Package main hosts the plexparity CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, takes the state directory
// lock for commands that mutate caches, and drives the step-based scan
// orchestrator from a single host loop. Results, overrides, ignores and scan
// history are surfaced as go-pretty tables or JSON.
//
// Keep this package thin: behaviour belongs in the internal packages and is
// only wired and rendered here.
package main
