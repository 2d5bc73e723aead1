package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/docker"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/templates"
)

// Create provisions a database of kind with p and returns its record in
// StatusReady with ContainerID set.
//
// Validation happens before the daemon is contacted and returns a plain
// common.ErrValidation or common.ErrUnknownKind error. Every later failure
// is a *ProvisionError; by then the container and volume have been rolled
// back as far as the daemon allowed.
func (o *Orchestrator) Create(ctx context.Context, kind models.Kind, p models.Params) (models.DatabaseRecord, error) {
	tmpl, err := templates.Lookup(kind)
	if err != nil {
		return models.DatabaseRecord{}, err
	}
	if err := tmpl.Validate(p); err != nil {
		return models.DatabaseRecord{}, err
	}

	id := o.newID()
	rec := models.DatabaseRecord{
		ID:           id,
		Name:         p.Name,
		Kind:         kind,
		Username:     p.Username,
		Password:     p.Password,
		DatabaseName: p.DatabaseName,
		RootPassword: p.RootPassword,
		Port:         p.Port,
		VolumeName:   VolumeName(id),
		CreatedAt:    o.now().UTC(),
		Status:       models.StatusRequested,
	}
	o.transition(ctx, rec, "", models.StageRequested, nil)

	stage := models.StageRequested
	fail := func(err error, warnings []error) (models.DatabaseRecord, error) {
		o.transition(ctx, rec, stage, models.StageFailed, err)
		rec.Status = models.StatusFailed
		return rec, &ProvisionError{RecordID: rec.ID, Stage: stage, Err: err, Warnings: warnings}
	}

	if err := o.ensureImage(ctx, tmpl.Image); err != nil {
		return fail(err, nil)
	}
	o.transition(ctx, rec, stage, models.StageImagePulled, nil)
	stage = models.StageImagePulled

	labels := map[string]string{
		common.LabelManaged:  "true",
		common.LabelRecordID: rec.ID,
		common.LabelKind:     string(kind),
	}
	if err := o.daemon.CreateVolume(ctx, rec.VolumeName, labels); err != nil {
		return fail(daemonErr(common.ErrContainerCreateFailed, "create volume", err), nil)
	}

	spec := docker.ContainerSpec{
		Name:   ContainerName(rec),
		Image:  tmpl.Image,
		Env:    tmpl.Env(p),
		Ports:  []docker.PortBinding{{HostIP: HostIP, HostPort: p.Port, ContainerPort: tmpl.ContainerPort}},
		Mounts: []docker.VolumeMount{{Volume: rec.VolumeName, Target: tmpl.DataPath}},
		Labels: labels,
	}
	containerID, err := o.daemon.CreateContainer(ctx, spec)
	if err != nil {
		return fail(daemonErr(common.ErrContainerCreateFailed, "create container", err), o.cleanup(ctx, rec, ""))
	}
	o.transition(ctx, rec, stage, models.StageContainerCreated, nil)
	stage = models.StageContainerCreated

	if err := o.daemon.Start(ctx, containerID); err != nil {
		return fail(daemonErr(common.ErrContainerCreateFailed, "start container", err), o.cleanup(ctx, rec, containerID))
	}
	o.transition(ctx, rec, stage, models.StageStarting, nil)
	stage = models.StageStarting
	rec.Status = models.StatusStarting

	o.transition(ctx, rec, stage, models.StageHealthChecking, nil)
	stage = models.StageHealthChecking
	if err := o.waitHealthy(ctx, rec, tmpl, p, containerID); err != nil {
		return fail(err, o.cleanup(ctx, rec, containerID))
	}

	rec.ContainerID = containerID
	rec.Status = models.StatusReady
	o.transition(ctx, rec, stage, models.StageReady, nil)
	return rec, nil
}

func (o *Orchestrator) ensureImage(ctx context.Context, ref string) error {
	ok, err := o.daemon.HasImage(ctx, ref)
	if err != nil {
		return daemonErr(common.ErrImagePullFailed, "inspect image "+ref, err)
	}
	if ok {
		return nil
	}
	o.logger.Info(ctx, "pulling image", "image", ref)
	if err := o.daemon.Pull(ctx, ref); err != nil {
		return daemonErr(common.ErrImagePullFailed, "pull "+ref, err)
	}
	return nil
}

// cleanup stops and removes the container (when one was created) and the
// record's volume. It returns the failures instead of acting on them.
func (o *Orchestrator) cleanup(ctx context.Context, rec models.DatabaseRecord, containerID string) []error {
	ctx, cancel := o.cleanupContext(ctx)
	defer cancel()

	var warnings []error
	warn := func(op string, err error) {
		if err == nil || errors.Is(err, docker.ErrNotFound) {
			return
		}
		w := fmt.Errorf("cleanup %s: %w", op, err)
		o.logger.Warn(ctx, "cleanup failed", "record_id", rec.ID, "op", op, "error", err)
		warnings = append(warnings, w)
	}

	if containerID != "" {
		warn("stop container", o.daemon.Stop(ctx, containerID))
		warn("remove container", o.daemon.Remove(ctx, containerID))
	}
	warn("remove volume", o.daemon.RemoveVolume(ctx, rec.VolumeName))
	return warnings
}
