// Package models defines the persisted entities of dbkeeper.
package models

import (
	"log/slog"
	"time"
)

// Kind identifies a database engine template.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
	KindRedis    Kind = "redis"
)

// Status is the lifecycle state of a DatabaseRecord.
type Status string

const (
	StatusRequested Status = "requested"
	StatusStarting  Status = "starting"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
	StatusOrphaned  Status = "orphaned"
)

// RuntimeState is what the container daemon reports for a record's container.
type RuntimeState string

const (
	RuntimeRunning RuntimeState = "running"
	RuntimeStopped RuntimeState = "stopped"
	RuntimeUnknown RuntimeState = "unknown"
)

// DatabaseRecord describes one provisioned database instance.
//
// Records are drafted by the orchestrator and become durable only once they
// reach StatusReady. Port is fixed at creation time and ContainerID is set
// only on successful provisioning.
type DatabaseRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Kind         Kind      `json:"kind"`
	Username     string    `json:"username,omitempty"`
	Password     string    `json:"password,omitempty"`
	DatabaseName string    `json:"database_name,omitempty"`
	RootPassword string    `json:"root_password,omitempty"`
	Port         int       `json:"port"`
	ContainerID  string    `json:"container_id,omitempty"`
	VolumeName   string    `json:"volume_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Status       Status    `json:"status"`
}

// LogValue keeps credentials out of structured logs.
func (r DatabaseRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.String("name", r.Name),
		slog.String("kind", string(r.Kind)),
		slog.Int("port", r.Port),
		slog.String("status", string(r.Status)),
	)
}

// String renders a one-line, secret-free summary.
func (r DatabaseRecord) String() string {
	return r.Name + " (" + string(r.Kind) + ", " + r.ID + ")"
}

// RecordSet is the ordered plaintext content of the vault.
type RecordSet struct {
	Records []DatabaseRecord `json:"records"`
}

// Clone returns a deep copy so callers can mutate it freely.
func (s RecordSet) Clone() RecordSet {
	out := RecordSet{Records: make([]DatabaseRecord, len(s.Records))}
	copy(out.Records, s.Records)
	return out
}

// Find returns the index of the record with the given id, or -1.
func (s RecordSet) Find(id string) int {
	for i := range s.Records {
		if s.Records[i].ID == id {
			return i
		}
	}
	return -1
}

// Params are the user-supplied provisioning parameters for a template.
type Params struct {
	Name         string
	Username     string
	Password     string
	DatabaseName string
	RootPassword string
	Port         int
}
