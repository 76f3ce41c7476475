// Package daemon coordinates the long-running headphones process.
//
// It wires configuration, the snatch store, the download folder scanner and
// the wanted-album searcher into a single lifecycle with flock-based locking
// to prevent multiple instances. Scans run on a timer, when a folder appears
// in a download directory, and on request through the JSON API. Config file
// edits rebuild the workers with the new settings.
//
// Keep orchestration logic here: verification and post-processing live in
// internal/postprocess and searching in internal/search.
package daemon
