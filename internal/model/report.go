package model

// PromotionReport summarizes one promotion run.
type PromotionReport struct {
	Batches      int `json:"batches"`
	Scanned      int `json:"scanned"`
	Promoted     int `json:"promoted"`
	Deduplicated int `json:"deduplicated"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
	// Coalesced is true when the run joined one already in progress and
	// did no work of its own.
	Coalesced bool `json:"coalesced,omitempty"`
}

// DispatchReport summarizes one notification dispatch run.
type DispatchReport struct {
	Batches  int `json:"batches"`
	Scanned  int `json:"scanned"`
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
