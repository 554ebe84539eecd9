package core

// RowStatus is the outcome of processing one mapping row.
type RowStatus string

// Row status constants.
const (
	RowStatusUpdated  RowStatus = "updated"
	RowStatusNotFound RowStatus = "not_found"
	RowStatusPlanned  RowStatus = "planned"
	RowStatusRejected RowStatus = "rejected"
)

// RowResult records what happened to one mapping row.
type RowResult struct {
	Line          int       `json:"line,omitempty"`
	Field         string    `json:"field"`
	Alias         string    `json:"alias"`
	PreviousAlias string    `json:"previous_alias,omitempty"`
	Status        RowStatus `json:"status"`
	Message       string    `json:"message"`
}

// Summary counts row outcomes.
type Summary struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Missing   int `json:"missing"`
	Planned   int `json:"planned,omitempty"`
	Rejected  int `json:"rejected,omitempty"`
}

// Report is the structured result of one apply run.
type Report struct {
	Dataset string      `json:"dataset"`
	Source  string      `json:"source,omitempty"`
	DryRun  bool        `json:"dry_run"`
	Results []RowResult `json:"results"`
	Summary Summary     `json:"summary"`
}

// Add appends a result and updates the summary.
func (r *Report) Add(res RowResult) {
	r.Results = append(r.Results, res)
	r.Summary.Processed++
	switch res.Status {
	case RowStatusUpdated:
		r.Summary.Updated++
	case RowStatusNotFound:
		r.Summary.Missing++
	case RowStatusPlanned:
		r.Summary.Planned++
	case RowStatusRejected:
		r.Summary.Rejected++
	}
}

// Messages returns the per-row messages in processing order.
func (r *Report) Messages() []string {
	msgs := make([]string, len(r.Results))
	for i, res := range r.Results {
		msgs[i] = res.Message
	}
	return msgs
}
