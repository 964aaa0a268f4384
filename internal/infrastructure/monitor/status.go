package monitor

import "time"

// Status is the last observed reachability of each dependency.
type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	Buffer     bool      `json:"buffer"`
	BufferSize int       `json:"buffer_size"`
	LastCheck  time.Time `json:"last_check"`
}

// Healthy reports whether requests can be served: sessions need Redis and
// catalog reads need Postgres.
func (s Status) Healthy() bool {
	return s.PostgreSQL && s.Redis
}
