// Package main hosts the headphones CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the daemon when it is running and into direct store and
// post-processing calls when it is not. It centralizes configuration
// resolution, socket discovery, and logger setup so subcommands can focus on
// output.
package main
