package models

import "time"

// Stage is a step of the provisioning state machine. It is finer grained
// than Status, which is all the vault keeps.
type Stage string

const (
	StageRequested        Stage = "requested"
	StageImagePulled      Stage = "image_pulled"
	StageContainerCreated Stage = "container_created"
	StageStarting         Stage = "starting"
	StageHealthChecking   Stage = "health_checking"
	StageReady            Stage = "ready"
	StageFailed           Stage = "failed"
	StageDeleted          Stage = "deleted"
	StageOrphaned         Stage = "orphaned"
)

// Transition is one lifecycle event of a record. It carries an error class
// rather than the error text so nothing secret ends up in the journal.
type Transition struct {
	RecordID   string
	Kind       Kind
	From       Stage
	To         Stage
	ErrorClass string
	At         time.Time
}
