package models

import "time"

// ProcessingError is the operator-facing record of a pipeline failure. Items
// that exhaust their retry budget stop being selected; without this ledger
// they would starve silently.
type ProcessingError struct {
	ID         string     `json:"id"`
	ItemID     string     `json:"item_id"`
	URL        string     `json:"url"`
	Stage      string     `json:"stage"`      // e.g. "summarize", "store"
	ErrorMsg   string     `json:"error_msg"`
	RetryCount int        `json:"retry_count"`
	CreatedAt  time.Time  `json:"created_at"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Processing stages recorded on errors.
const (
	StageSummarize = "summarize"
	StageStore     = "store"
)
