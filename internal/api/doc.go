// Package api defines wire-format types and converters for the HTTP API. It
// translates snatch records, verification results and dependency checks into
// transport-friendly DTOs so clients never depend on internal types.
//
// DTOs use camelCase JSON tags. Statuses are exposed as their stored names
// ("Snatched", "Processed", "Unprocessed") and timestamps use RFC3339 with
// milliseconds.
package api
