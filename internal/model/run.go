package model

import "time"

// RunStatus represents the current state of a scrape run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusLinksExtracted RunStatus = "links_extracted"
	RunStatusFetching       RunStatus = "fetching"
	RunStatusExtracting     RunStatus = "extracting"
	RunStatusComplete       RunStatus = "complete"
	RunStatusFailed         RunStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s RunStatus) Terminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// SearchRequest is the input boundary of one run.
type SearchRequest struct {
	Site        Site              `json:"site"`
	Term        string            `json:"term"`
	Page        int               `json:"page"`
	MaxProducts int               `json:"max_products,omitempty"` // 0 means no cap
	Headers     map[string]string `json:"headers,omitempty"`
}

// Run represents a single search-and-scrape run.
type Run struct {
	ID        string        `json:"id"`
	Request   SearchRequest `json:"request"`
	Status    RunStatus     `json:"status"`
	Result    *RunResult    `json:"result,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RunResult holds the final counts of a run.
type RunResult struct {
	SearchURL  string   `json:"search_url"`
	LinksFound int      `json:"links_found"`
	Dispatched int      `json:"dispatched"`
	Fetched    int      `json:"fetched"`
	Records    int      `json:"records"`
	FailedURLs []string `json:"failed_urls,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}
