package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/docker"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
)

// Delete stops and removes the record's container and volume. Objects that
// are already gone are skipped, so deleting twice is harmless daemon-side.
func (o *Orchestrator) Delete(ctx context.Context, rec models.DatabaseRecord) error {
	var errs []error
	step := func(op string, err error) {
		if err != nil && !errors.Is(err, docker.ErrNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", op, err))
		}
	}

	if rec.ContainerID != "" {
		step("stop container", o.daemon.Stop(ctx, rec.ContainerID))
		step("remove container", o.daemon.Remove(ctx, rec.ContainerID))
	}
	volume := rec.VolumeName
	if volume == "" {
		volume = VolumeName(rec.ID)
	}
	step("remove volume", o.daemon.RemoveVolume(ctx, volume))

	if err := errors.Join(errs...); err != nil {
		o.transition(ctx, rec, models.Stage(rec.Status), models.StageDeleted, err)
		return fmt.Errorf("record %s: %w", rec.ID, err)
	}
	o.transition(ctx, rec, models.Stage(rec.Status), models.StageDeleted, nil)
	return nil
}

// Status asks the daemon about the record's container. A container the
// daemon no longer knows is RuntimeUnknown with a nil error; callers treat
// that as orphaned. An unreachable daemon is RuntimeUnknown with an error.
func (o *Orchestrator) Status(ctx context.Context, rec models.DatabaseRecord) (models.RuntimeState, error) {
	if rec.ContainerID == "" {
		return models.RuntimeUnknown, nil
	}

	st, err := o.daemon.Inspect(ctx, rec.ContainerID)
	switch {
	case errors.Is(err, docker.ErrNotFound):
		return models.RuntimeUnknown, nil
	case errors.Is(err, common.ErrDaemonUnavailable):
		return models.RuntimeUnknown, fmt.Errorf("record %s: %w", rec.ID, err)
	case err != nil:
		return models.RuntimeUnknown, fmt.Errorf("record %s: inspect: %w", rec.ID, err)
	}

	if st.Running {
		return models.RuntimeRunning, nil
	}
	return models.RuntimeStopped, nil
}

// MarkOrphaned records the orphaned transition for rec.
func (o *Orchestrator) MarkOrphaned(ctx context.Context, rec models.DatabaseRecord) {
	o.transition(ctx, rec, models.Stage(rec.Status), models.StageOrphaned, nil)
}
