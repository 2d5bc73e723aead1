package keeper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/templates"
)

// CreateResult is delivered by CreateDatabaseAsync.
type CreateResult struct {
	Record models.DatabaseRecord
	Err    error
}

// CreateDatabase provisions a database and stores its record once it is
// ready. The record is persisted exactly once, and only on success.
//
// If persisting fails after the container became ready, the container is
// removed again and a common.ErrConfigIO error is returned.
func (k *Keeper) CreateDatabase(ctx context.Context, kind models.Kind, p models.Params) (models.DatabaseRecord, error) {
	tmpl, err := templates.Lookup(kind)
	if err != nil {
		return models.DatabaseRecord{}, err
	}
	if err := tmpl.Validate(p); err != nil {
		return models.DatabaseRecord{}, err
	}

	release, err := k.res.claim(k.ListDatabases, p)
	if err != nil {
		return models.DatabaseRecord{}, err
	}
	defer release()

	rec, err := k.prov.Create(ctx, kind, p)
	if err != nil {
		return rec, err
	}

	err = k.commit(ctx, func(set *models.RecordSet) error {
		set.Records = append(set.Records, rec)
		return nil
	})
	if err != nil {
		k.logger.Error(ctx, "record not stored, rolling back container", "record_id", rec.ID, "error", err)
		if derr := k.prov.Delete(context.WithoutCancel(ctx), rec); derr != nil {
			k.logger.Warn(ctx, "rollback failed", "record_id", rec.ID, "error", derr)
		}
		return rec, err
	}

	k.logger.Info(ctx, "database created", "record_id", rec.ID, "name", rec.Name, "kind", string(rec.Kind))
	return rec, nil
}

// CreateDatabaseAsync runs CreateDatabase in the background. The returned
// channel yields exactly one result and is then closed.
func (k *Keeper) CreateDatabaseAsync(ctx context.Context, kind models.Kind, p models.Params) <-chan CreateResult {
	out := make(chan CreateResult, 1)
	go func() {
		defer close(out)
		rec, err := k.CreateDatabase(ctx, kind, p)
		out <- CreateResult{Record: rec, Err: err}
	}()
	return out
}

// DeleteDatabase removes the record's container and volume, then drops the
// record. The record is dropped even when container removal failed; the
// daemon error (including common.ErrDaemonUnavailable) is still returned.
func (k *Keeper) DeleteDatabase(ctx context.Context, id string) error {
	rec, err := k.lookup(id)
	if err != nil {
		return err
	}

	derr := k.prov.Delete(ctx, rec)
	if derr != nil {
		k.logger.Warn(ctx, "container removal failed, dropping record anyway",
			"record_id", rec.ID, "name", rec.Name, "error", derr)
	}

	err = k.commit(ctx, func(set *models.RecordSet) error {
		i := set.Find(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", common.ErrRecordNotFound, id)
		}
		set.Records = append(set.Records[:i], set.Records[i+1:]...)
		return nil
	})
	if err != nil {
		return errors.Join(err, derr)
	}

	k.logger.Info(ctx, "database deleted", "record_id", rec.ID, "name", rec.Name)
	return derr
}

// GetStatus reports the runtime state of the record's container. A
// container the daemon no longer knows marks the record orphaned.
func (k *Keeper) GetStatus(ctx context.Context, id string) (models.RuntimeState, error) {
	rec, err := k.lookup(id)
	if err != nil {
		return models.RuntimeUnknown, err
	}

	state, err := k.prov.Status(ctx, rec)
	if err != nil {
		return state, err
	}
	if state != models.RuntimeUnknown || rec.Status == models.StatusOrphaned {
		return state, nil
	}

	err = k.commit(ctx, func(set *models.RecordSet) error {
		if i := set.Find(id); i >= 0 {
			set.Records[i].Status = models.StatusOrphaned
		}
		return nil
	})
	if err != nil {
		return state, err
	}
	k.prov.MarkOrphaned(ctx, rec)
	k.logger.Warn(ctx, "container missing, record orphaned", "record_id", rec.ID, "name", rec.Name)
	return state, nil
}

// RefreshStatuses inspects every record concurrently. Per-record failures
// are joined; states of the records that succeeded are still returned.
func (k *Keeper) RefreshStatuses(ctx context.Context) (map[string]models.RuntimeState, error) {
	records, err := k.ListDatabases()
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		states = make(map[string]models.RuntimeState, len(records))
		errs   []error
	)

	var g errgroup.Group
	g.SetLimit(k.refreshLimit)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			st, err := k.GetStatus(ctx, rec.ID)
			mu.Lock()
			defer mu.Unlock()
			states[rec.ID] = st
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return states, errors.Join(errs...)
}

// ConnectionString formats the client URL of rec.
func (k *Keeper) ConnectionString(rec models.DatabaseRecord) (string, error) {
	return templates.ConnectionString(rec)
}
