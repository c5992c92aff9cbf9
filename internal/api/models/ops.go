package models

// Health is the body of the liveness and readiness probes. Details maps a
// critical subsystem to "ok" or its failure.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus is the body of GET /v1/ops/status.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Upstreams  []UpstreamStatus  `json:"upstreams"`
	// Fallbacks names the reference data forecasts currently use in place of
	// an unhealthy upstream, e.g. "weatherapi-reference".
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// SubsystemStatus is one checked dependency. A failing critical subsystem
// fails the whole service; any other only degrades it.
type SubsystemStatus struct {
	Name     string       `json:"name"`
	Critical bool         `json:"critical"`
	Status   HealthStatus `json:"status"`
	Detail   *string      `json:"detail,omitempty"`
}

// UpstreamStatus reports a weather, yield or suggestion upstream as seen by
// its resilient client.
type UpstreamStatus struct {
	Name          string       `json:"name"`
	Status        HealthStatus `json:"status"`
	Circuit       string       `json:"circuit"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
