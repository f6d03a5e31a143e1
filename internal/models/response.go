package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SearchResponse represents a merged multi-target search response. Message
// carries an explanation when no targets were configured or reachable; the
// response is still HTTP 200 in that case.
type SearchResponse struct {
	Total   uint64        `json:"total"`
	Page    int           `json:"page"`
	Size    int           `json:"size"`
	Results []AccountView `json:"results"`
	Message string        `json:"message,omitempty"`
}

// CountResponse represents a merged multi-target count response
type CountResponse struct {
	Total   uint64 `json:"total"`
	Message string `json:"message,omitempty"`
}

// CacheResponse wraps the index cache snapshot
type CacheResponse struct {
	Nodes CacheSnapshot `json:"nodes"`
}

// RefreshResponse reports the outcome of an explicit cache refresh
type RefreshResponse struct {
	Nodes         CacheSnapshot `json:"nodes"`
	PrunedTargets int           `json:"pruned_targets"`
}

// NodeListResponse represents the configured node list
type NodeListResponse struct {
	Nodes []Node `json:"nodes"`
}

// SelectedIndicesResponse represents the configured public search surface
type SelectedIndicesResponse struct {
	Selected []SelectedIndex `json:"selected"`
}

// TaskResponse wraps a single task
type TaskResponse struct {
	Task Task `json:"task"`
}

// TaskListResponse represents the task registry contents
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// TaskActionResponse reports how many tasks a clear action removed
type TaskActionResponse struct {
	Cleared int `json:"cleared"`
}

// FileListResponse lists ingestable and already-ingested files
type FileListResponse struct {
	Unparsed []string `json:"unparsed"`
	Parsed   []string `json:"parsed"`
}

// AcceptedResponse acknowledges an async operation with its task id
type AcceptedResponse struct {
	TaskID string `json:"task_id"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
