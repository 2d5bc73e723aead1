package common

// LabelPrefix namespaces container and volume labels written by dbkeeper.
const LabelPrefix = "io.dbkeeper."

// Label keys attached to every managed container.
const (
	LabelManaged  = LabelPrefix + "managed"
	LabelRecordID = LabelPrefix + "record-id"
	LabelKind     = LabelPrefix + "kind"
)
