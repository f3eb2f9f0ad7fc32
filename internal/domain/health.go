package domain

// HealthStatus classifies a diagnostic check outcome.
type HealthStatus string

const (
	HealthOK    HealthStatus = "ok"
	HealthWarn  HealthStatus = "warn"
	HealthError HealthStatus = "error"
)

// HealthCheck is a single named diagnostic result.
type HealthCheck struct {
	Name    string
	Status  HealthStatus
	Details string
}

// HealthReport aggregates diagnostics for the doctor command.
type HealthReport struct {
	Checks []HealthCheck
}

// Healthy reports whether no check failed outright.
func (r HealthReport) Healthy() bool {
	for _, check := range r.Checks {
		if check.Status == HealthError {
			return false
		}
	}
	return true
}
