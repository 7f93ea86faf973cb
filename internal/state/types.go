// Package state owns the durable record of rehydration outcomes: the
// system status, the set of active environments, and the append-only
// history of past attempts. The Store is the only component that
// performs the read-modify-write persistence cycle.
package state

import "time"

// Status describes the overall system condition.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusHydrated      Status = "hydrated"
	StatusError         Status = "error"
)

// RecordStatus classifies one past rehydration attempt.
type RecordStatus string

const (
	// RecordSuccess means the routine ran and exited zero.
	RecordSuccess RecordStatus = "success"
	// RecordFailed means the routine ran and reported a non-zero exit.
	RecordFailed RecordStatus = "failed"
	// RecordError means the routine never reported a result (launch
	// failure, timeout, or no routine for the host platform).
	RecordError RecordStatus = "error"
)

// HistoryRecord is an immutable fact about one past rehydration attempt.
// Records are append-only; nothing removes or rewrites them short of a
// full reset.
type HistoryRecord struct {
	Timestamp       time.Time    `json:"timestamp"`
	Environment     string       `json:"environment"`
	Platform        string       `json:"platform"`
	VerifyIntegrity bool         `json:"verifyIntegrity"`
	Status          RecordStatus `json:"status"`
	ReturnCode      *int         `json:"returncode"` // nil when the routine never reported one
	Output          string       `json:"output,omitempty"`
}

// SystemState is the persisted singleton tracking all rehydration
// activity for this host.
type SystemState struct {
	SystemStatus       Status          `json:"systemStatus"`
	ActiveEnvironments []string        `json:"activeEnvironments"`
	LastRehydration    *time.Time      `json:"lastRehydration"`
	History            []HistoryRecord `json:"rehydrationHistory"`
}

// Initial returns the state a fresh installation starts from.
func Initial() SystemState {
	return SystemState{
		SystemStatus:       StatusUninitialized,
		ActiveEnvironments: []string{},
		History:            []HistoryRecord{},
	}
}

// IsActive reports whether the environment is currently hydrated.
func (s SystemState) IsActive(environment string) bool {
	for _, env := range s.ActiveEnvironments {
		if env == environment {
			return true
		}
	}
	return false
}

// Activate adds the environment to the active set, preserving insertion
// order. Membership only ever grows; removal happens via reset alone.
func (s *SystemState) Activate(environment string) {
	if s.IsActive(environment) {
		return
	}
	s.ActiveEnvironments = append(s.ActiveEnvironments, environment)
}
