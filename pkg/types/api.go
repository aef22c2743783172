package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: not found
	Error string `json:"error" example:"not found"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// RunStatus is returned by GET /status.
type RunStatus struct {
	// Identifier of the current or last run (empty before the first run).
	// example: 1b4e28ba-2fa1-11d2-883f-0016d3cca427
	RunID string `json:"run_id,omitempty" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	// Engine executing the run.
	// example: reference
	Engine string `json:"engine" example:"reference"`
	// Lifecycle state (idle, running, done, error).
	// example: running
	State string `json:"state" example:"running"`
	// Why the last run stopped (converged, max_evaluations_reached, no_support, aborted, returned).
	// example: converged
	Termination string `json:"termination,omitempty" example:"converged"`
	// Dimensionality of the parameter space.
	// example: 2
	NDims int `json:"ndims" example:"2"`
	// Number of derived parameters.
	// example: 1
	NDerived int `json:"nderived" example:"1"`
	// Number of live points.
	// example: 500
	NLive int `json:"nlive" example:"500"`
	// Dead points so far.
	// example: 4200
	NDead int `json:"ndead" example:"4200"`
	// Likelihood evaluations so far.
	// example: 52000
	NLike int64 `json:"nlike" example:"52000"`
	// Running log-evidence estimate.
	// example: -4.21
	LogZ float64 `json:"log_z" example:"-4.21"`
	// Log-evidence still held by the live points.
	// example: -9.7
	LogZLive float64 `json:"log_z_live" example:"-9.7"`
	// Error estimate on log_z (set when the run finishes).
	// example: 0.12
	LogZErr float64 `json:"log_z_err,omitempty" example:"0.12"`
	// Number of clusters currently tracked.
	// example: 1
	NClusters int `json:"nclusters" example:"1"`
	// Last error observed by the runner (if any).
	LastError string `json:"last_error,omitempty"`
	// Run start time in unix seconds.
	// example: 1700000000
	StartedUnix int64 `json:"started_unix,omitempty" example:"1700000000"`
	// Uptime of the process in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
