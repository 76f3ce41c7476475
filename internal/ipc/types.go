package ipc

import "headphones/internal/api"

// StartRequest starts the daemon loops.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon loops.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse mirrors the HTTP status payload.
type StatusResponse = api.DaemonStatus

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// Snatch mirrors the HTTP API snatch DTO.
type Snatch = api.Snatch

// ScanResult mirrors the HTTP API scan result DTO.
type ScanResult = api.ScanResult

// ScanRequest runs a download folder scan. Async queues it on the daemon
// loop instead of waiting for results.
type ScanRequest struct {
	Async bool `json:"async"`
}

// ScanResponse reports folder scan results.
type ScanResponse struct {
	Accepted bool         `json:"accepted"`
	Results  []ScanResult `json:"results"`
}

// SearchRequest queues a wanted-album search.
type SearchRequest struct{}

// SearchResponse reports whether the request was queued.
type SearchResponse struct {
	Accepted bool `json:"accepted"`
}

// SnatchListRequest filters snatches by status.
type SnatchListRequest struct {
	Statuses []string `json:"statuses"`
}

// SnatchListResponse contains snatch records.
type SnatchListResponse struct {
	Items []Snatch `json:"items"`
}

// SnatchDescribeRequest fetches a single snatch by id.
type SnatchDescribeRequest struct {
	ID int64 `json:"id"`
}

// SnatchDescribeResponse contains a single snatch.
type SnatchDescribeResponse struct {
	Item Snatch `json:"item"`
}

// SnatchClearRequest removes finished snatches. An empty list clears every
// processed and unprocessed record.
type SnatchClearRequest struct {
	Statuses []string `json:"statuses"`
}

// SnatchClearResponse reports number of removed entries.
type SnatchClearResponse struct {
	Removed int64 `json:"removed"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
