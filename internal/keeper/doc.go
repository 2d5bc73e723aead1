// Package keeper is the API the presentation layer drives. It ties the
// encrypted vault, its persistent store and the container orchestrator
// together and owns the in-memory record set while the vault is unlocked.
//
// # Concurrency
//
// Every mutation of the record set runs mutate, seal and persist under one
// writer lock, so two provisioning requests finishing at the same moment
// cannot overwrite each other's records. ListDatabases reads a snapshot and
// never waits for daemon I/O. Host ports and container names claimed by
// in-flight requests are reserved until the request settles.
package keeper
