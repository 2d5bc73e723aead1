package keeper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/configstore"
	"github.com/dmitrijs2005/dbkeeper/internal/cryptox"
	"github.com/dmitrijs2005/dbkeeper/internal/logging"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/vault"
)

// Provisioner drives container lifecycles. *orchestrator.Orchestrator
// implements it.
type Provisioner interface {
	Create(ctx context.Context, kind models.Kind, p models.Params) (models.DatabaseRecord, error)
	Delete(ctx context.Context, rec models.DatabaseRecord) error
	Status(ctx context.Context, rec models.DatabaseRecord) (models.RuntimeState, error)
	MarkOrphaned(ctx context.Context, rec models.DatabaseRecord)
}

// HistoryStore is the lifecycle journal. *journal.Journal implements it.
type HistoryStore interface {
	History(ctx context.Context, recordID string) ([]models.Transition, error)
	Clear(ctx context.Context) error
}

const defaultRefreshLimit = 4

type Keeper struct {
	store   configstore.Store
	prov    Provisioner
	history HistoryStore
	logger  logging.Logger

	kdf          cryptox.KDFParams
	refreshLimit int

	// writeMu serialises mutate+seal+persist and key teardown.
	writeMu sync.Mutex
	// mu guards set and key for readers.
	mu  sync.RWMutex
	set models.RecordSet
	key *vault.Key

	res *reservations
}

type Option func(*Keeper)

// WithKDFParams sets the argon2id cost used by InitVault.
func WithKDFParams(p cryptox.KDFParams) Option {
	return func(k *Keeper) { k.kdf = p }
}

func WithHistory(h HistoryStore) Option {
	return func(k *Keeper) { k.history = h }
}

// WithRefreshLimit caps concurrent inspections in RefreshStatuses.
func WithRefreshLimit(n int) Option {
	return func(k *Keeper) {
		if n > 0 {
			k.refreshLimit = n
		}
	}
}

func New(store configstore.Store, prov Provisioner, logger logging.Logger, opts ...Option) *Keeper {
	k := &Keeper{
		store:        store,
		prov:         prov,
		logger:       logger,
		kdf:          cryptox.DefaultKDFParams(),
		refreshLimit: defaultRefreshLimit,
		res:          newReservations(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// VaultExists reports whether an envelope has been persisted.
func (k *Keeper) VaultExists(ctx context.Context) (bool, error) {
	_, err := k.store.Load(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// InitVault creates and persists an empty vault sealed under passphrase and
// leaves it unlocked. An existing vault is never overwritten.
func (k *Keeper) InitVault(ctx context.Context, passphrase []byte) error {
	k.writeMu.Lock()
	defer k.writeMu.Unlock()

	exists, err := k.VaultExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return common.ErrVaultExists
	}

	env, key, err := vault.Initialize(passphrase, k.kdf)
	if err != nil {
		return err
	}
	if err := k.persist(ctx, env); err != nil {
		key.Wipe()
		return err
	}

	k.swap(models.RecordSet{Records: []models.DatabaseRecord{}}, key)
	k.logger.Info(ctx, "vault initialized")
	return nil
}

// UnlockVault loads the envelope and decrypts it. A missing vault is
// common.ErrNotFound; anything wrong with passphrase or content is
// common.ErrAuth.
func (k *Keeper) UnlockVault(ctx context.Context, passphrase []byte) error {
	k.writeMu.Lock()
	defer k.writeMu.Unlock()

	data, err := k.store.Load(ctx)
	if err != nil {
		return err
	}
	env, err := vault.Decode(data)
	if err != nil {
		return err
	}
	set, key, err := vault.Unlock(passphrase, env)
	if err != nil {
		k.logger.Warn(ctx, "vault unlock failed")
		return err
	}

	k.swap(set, key)
	k.logger.Info(ctx, "vault unlocked", "records", len(set.Records))
	return nil
}

// Lock wipes the key and forgets the plaintext records.
func (k *Keeper) Lock() {
	k.writeMu.Lock()
	defer k.writeMu.Unlock()
	k.swap(models.RecordSet{}, nil)
}

// Unlocked reports whether records are available.
func (k *Keeper) Unlocked() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.key != nil
}

// ResetVault locks the keeper and deletes the persisted envelope and the
// lifecycle history. Containers are left alone.
func (k *Keeper) ResetVault(ctx context.Context) error {
	k.writeMu.Lock()
	defer k.writeMu.Unlock()

	k.swap(models.RecordSet{}, nil)
	if err := k.store.Delete(ctx); err != nil {
		return err
	}
	if k.history != nil {
		if err := k.history.Clear(ctx); err != nil {
			k.logger.Warn(ctx, "history clear failed", "error", err)
		}
	}
	k.logger.Info(ctx, "vault reset")
	return nil
}

// ListDatabases returns a copy of the current records.
func (k *Keeper) ListDatabases() ([]models.DatabaseRecord, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.key == nil {
		return nil, common.ErrVaultLocked
	}
	return k.set.Clone().Records, nil
}

// History returns the lifecycle transitions of id, oldest first. Without a
// journal it is empty.
func (k *Keeper) History(ctx context.Context, id string) ([]models.Transition, error) {
	if k.history == nil {
		return nil, nil
	}
	return k.history.History(ctx, id)
}

func (k *Keeper) lookup(id string) (models.DatabaseRecord, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.key == nil {
		return models.DatabaseRecord{}, common.ErrVaultLocked
	}
	i := k.set.Find(id)
	if i < 0 {
		return models.DatabaseRecord{}, fmt.Errorf("%w: %s", common.ErrRecordNotFound, id)
	}
	return k.set.Records[i], nil
}

// commit applies mutate to a copy of the record set, seals and persists it,
// and only then publishes the copy. The caller must not hold writeMu.
func (k *Keeper) commit(ctx context.Context, mutate func(set *models.RecordSet) error) error {
	k.writeMu.Lock()
	defer k.writeMu.Unlock()

	k.mu.RLock()
	key := k.key
	next := k.set.Clone()
	k.mu.RUnlock()
	if key == nil {
		return common.ErrVaultLocked
	}

	if err := mutate(&next); err != nil {
		return err
	}
	env, err := vault.Seal(next, key)
	if err != nil {
		return err
	}
	if err := k.persist(ctx, env); err != nil {
		return err
	}

	k.mu.Lock()
	k.set = next
	k.mu.Unlock()
	return nil
}

func (k *Keeper) persist(ctx context.Context, env vault.Envelope) error {
	data, err := vault.Encode(env)
	if err != nil {
		return fmt.Errorf("%w: encode envelope: %v", common.ErrConfigIO, err)
	}
	return k.store.Persist(ctx, data)
}

// swap replaces set and key, wiping the previous key. Callers hold writeMu.
func (k *Keeper) swap(set models.RecordSet, key *vault.Key) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key != nil && k.key != key {
		k.key.Wipe()
	}
	k.set = set
	k.key = key
}
