package transport

// Budget describes a Provider rate-limit profile. Transport does not enforce
// budgets; higher layers consult them to cap worker fan-out and to warn
// before jobs that approach the hourly allowance.
type Budget struct {
	Concurrency int
	PerSecond   float64
	PerHour     int
}

// QueryBudget is the Provider's Query API profile: 5 concurrent queries,
// 60 per hour.
var QueryBudget = Budget{Concurrency: 5, PerHour: 60}

// ExportBudget is the Provider's raw export profile: 3 requests per second,
// 100 concurrent, 60 per hour.
var ExportBudget = Budget{Concurrency: 100, PerSecond: 3, PerHour: 60}

// WarnAt returns the request count at which a job should warn, 80% of the
// hourly allowance.
func (b Budget) WarnAt() int {
	return b.PerHour * 8 / 10
}
