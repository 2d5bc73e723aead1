package keeper

import (
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
)

// reservations tracks ports and names claimed by provisioning requests that
// have not settled yet.
type reservations struct {
	mu    sync.Mutex
	ports map[int]struct{}
	names map[string]struct{}
}

func newReservations() *reservations {
	return &reservations{ports: map[int]struct{}{}, names: map[string]struct{}{}}
}

// claim reserves p's port and name unless a stored record or a pending
// request already uses either. records is read under the reservation lock
// so a request that just settled is seen either as a record or a claim.
func (r *reservations) claim(records func() ([]models.DatabaseRecord, error), p models.Params) (release func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := records()
	if err != nil {
		return nil, err
	}

	for _, rec := range stored {
		if rec.Port == p.Port {
			return nil, fmt.Errorf("%w: port %d is used by %s", common.ErrContainerCreateFailed, p.Port, rec.Name)
		}
		if rec.Name == p.Name {
			return nil, fmt.Errorf("%w: name %q is already in use", common.ErrContainerCreateFailed, p.Name)
		}
	}
	if _, busy := r.ports[p.Port]; busy {
		return nil, fmt.Errorf("%w: port %d is being provisioned", common.ErrContainerCreateFailed, p.Port)
	}
	if _, busy := r.names[p.Name]; busy {
		return nil, fmt.Errorf("%w: name %q is being provisioned", common.ErrContainerCreateFailed, p.Name)
	}

	r.ports[p.Port] = struct{}{}
	r.names[p.Name] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.ports, p.Port)
			delete(r.names, p.Name)
		})
	}, nil
}
