// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Snatch
// and scan payloads reuse the internal/api types so the socket and HTTP
// surfaces stay in step.
package ipc
