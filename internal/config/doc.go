// Package config owns the typed configuration model.
//
// A Store keeps the persisted section/key/value document in memory behind one
// mutex. Each Option binds an upper-case app key to a section of the store and
// converts raw values to its semantic type, falling back to the default with a
// warning when stored data cannot be converted. Options are collected in an
// explicit Registry and the application catalog (Options) snapshots them into
// plain Settings values that the rest of the code consumes.
//
// Files are TOML by default, YAML when the extension says so, and saved under
// a file lock. An optional meta file marks options read-only or hidden.
package config
