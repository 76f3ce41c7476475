package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Snatch describes a snatch record in a transport-friendly format.
type Snatch struct {
	ID         int64  `json:"id"`
	AlbumID    string `json:"albumId"`
	Title      string `json:"title"`
	Size       int64  `json:"size"`
	SizeLabel  string `json:"sizeLabel"`
	URL        string `json:"url,omitempty"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	FolderName string `json:"folderName,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// SnatchListResponse wraps a collection of snatches.
type SnatchListResponse struct {
	Items []Snatch `json:"items"`
}

// SnatchStatsResponse provides counts keyed by status.
type SnatchStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// ScanResult reports one verified download folder.
type ScanResult struct {
	AlbumID      string   `json:"albumId"`
	Outcome      string   `json:"outcome"`
	Match        string   `json:"match,omitempty"`
	Folder       string   `json:"folder,omitempty"`
	Destinations []string `json:"destinations,omitempty"`
}

// ScanResponse wraps the results of a folder scan.
type ScanResponse struct {
	Results []ScanResult `json:"results"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	LastScan     string             `json:"lastScan,omitempty"`
	LastSearch   string             `json:"lastSearch,omitempty"`
	LastError    string             `json:"lastError,omitempty"`
	Snatches     map[string]int     `json:"snatches"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// TriggerResponse acknowledges a scheduled job request.
type TriggerResponse struct {
	Job      string `json:"job"`
	Accepted bool   `json:"accepted"`
}
