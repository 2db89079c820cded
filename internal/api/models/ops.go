package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus      `json:"status"`
	Time    Timestamp         `json:"time"`
	Version string            `json:"version,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status     HealthStatus       `json:"status"`
	Time       Timestamp          `json:"time"`
	Version    string             `json:"version,omitempty"`
	BuildTime  string             `json:"build_time,omitempty"`
	Subsystems []SubsystemStatus  `json:"subsystems"`
	Guards     []DependencyStatus `json:"guards"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// DependencyStatus is the circuit breaker view of a guarded dependency.
type DependencyStatus struct {
	Name                string       `json:"name"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuit_state"`
	ConsecutiveFailures uint32       `json:"consecutive_failures"`
	LastSuccessAt       *Timestamp   `json:"last_success_at,omitempty"`
	LastFailureAt       *Timestamp   `json:"last_failure_at,omitempty"`
	Message             *string      `json:"message,omitempty"`
}
