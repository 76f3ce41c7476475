// Package services defines shared utilities consumed by the search and
// post-processing steps.
//
// It carries context helpers that stamp album IDs, snatch IDs and correlation
// identifiers for logging, plus structured error markers and the Wrap helper
// that keep failure messages and operator hints consistent.
package services
