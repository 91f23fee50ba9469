package models

// OKResponse is the envelope returned by every mutating control endpoint.
// Business failures are reported with OK=false and HTTP 200.
type OKResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

// StatusResponse represents the reservation process state
type StatusResponse struct {
	Running bool   `json:"running"`
	RunID   string `json:"run_id,omitempty"`
}

// LogChunk is one page of the cursor-based log API
type LogChunk struct {
	Lines    []string `json:"lines"`
	Next     uint64   `json:"next"`
	Finished bool     `json:"finished"`
}
