// Package logs reads the daemon's dated JSON log files for `headphones logs`.
//
// Tail keeps memory bounded: a negative offset returns the last N lines and
// the byte offset to resume from, and follow mode polls for appended lines
// until its wait expires or the context ends. Filter narrows lines by level,
// component and text without assuming every line is valid JSON.
package logs
