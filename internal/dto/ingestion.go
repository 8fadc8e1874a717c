package dto

// ImportFailure describes one rejected row of a tabular import.
type ImportFailure struct {
	Row   int    `json:"row"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// ImportReport summarises a tabular import run.
type ImportReport struct {
	Rows          int             `json:"rows"`
	Created       int             `json:"created"`
	SubmissionIDs []string        `json:"submission_ids"`
	Failures      []ImportFailure `json:"failures"`
}
