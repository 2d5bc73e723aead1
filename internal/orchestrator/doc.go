// Package orchestrator drives the container daemon through the provisioning
// state machine of a database record:
//
//	requested → image_pulled → container_created → starting → health_checking → ready | failed
//
// A failure after the container exists triggers best-effort cleanup of the
// container and its volume. Cleanup problems are attached to the returned
// ProvisionError as warnings and never replace the primary cause.
//
// The orchestrator never persists anything. Callers store the returned
// record once it is ready. Unrelated Create calls may run concurrently.
package orchestrator
