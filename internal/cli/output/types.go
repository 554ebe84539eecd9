package output

import (
	"time"

	"github.com/leapstack-labs/fieldalias/pkg/core"
)

// ApplyOutput is the JSON document written by apply and revert.
type ApplyOutput struct {
	RunID string `json:"run_id,omitempty"`
	*core.Report
	Error string `json:"error,omitempty"`
}

// FieldsOutput is the JSON document written by fields.
type FieldsOutput struct {
	Dataset string       `json:"dataset"`
	Adapter string       `json:"adapter"`
	Fields  []core.Field `json:"fields"`
}

// RunInfo is one recorded run.
type RunInfo struct {
	ID          string     `json:"id"`
	Dataset     string     `json:"dataset"`
	Adapter     string     `json:"adapter,omitempty"`
	Source      string     `json:"source,omitempty"`
	Status      string     `json:"status"`
	DryRun      bool       `json:"dry_run"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Updated     int        `json:"updated"`
	Missing     int        `json:"missing"`
}

// HistoryOutput is the JSON document written by history.
type HistoryOutput struct {
	Runs []RunInfo `json:"runs"`
}

// RunDetailOutput is the JSON document written by history show.
type RunDetailOutput struct {
	Run     RunInfo          `json:"run"`
	Results []core.RowResult `json:"results"`
}

// AdapterInfo describes one registered adapter.
type AdapterInfo struct {
	Name          string `json:"name"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// AdaptersOutput is the JSON document written by adapters.
type AdaptersOutput struct {
	Adapters []AdapterInfo `json:"adapters"`
}
