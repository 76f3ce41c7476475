// Package snatch persists snatch records and the album catalog in SQLite.
//
// A snatch is an accepted search result tied to an album. It starts out as
// Snatched, and post-processing moves it to Processed or Unprocessed; records
// are never deleted by the workflow. The catalog tables (artists, albums,
// tracks) hold what post-processing verifies downloads against.
//
// Schema changes bump schemaVersion in schema.go; users clear the database to
// adopt the new schema.
package snatch
