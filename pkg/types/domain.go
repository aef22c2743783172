package types

// RunSummary is the machine-readable outcome printed by `chordrun run --json`.
type RunSummary struct {
	RunID       string   `json:"run_id"`
	Engine      string   `json:"engine"`
	Termination string   `json:"termination"`
	LogZ        float64  `json:"log_z"`
	LogZErr     float64  `json:"log_z_err"`
	NDead       int      `json:"ndead"`
	NLike       int64    `json:"nlike"`
	NLive       int      `json:"nlive"`
	NClusters   int      `json:"nclusters"`
	Files       []string `json:"files"`
	Seconds     float64  `json:"seconds"`
}
