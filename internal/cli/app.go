package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/dbkeeper/internal/config"
	"github.com/dmitrijs2005/dbkeeper/internal/configstore"
	"github.com/dmitrijs2005/dbkeeper/internal/docker"
	"github.com/dmitrijs2005/dbkeeper/internal/filex"
	"github.com/dmitrijs2005/dbkeeper/internal/journal"
	"github.com/dmitrijs2005/dbkeeper/internal/keeper"
	"github.com/dmitrijs2005/dbkeeper/internal/logging"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/orchestrator"
	"github.com/dmitrijs2005/dbkeeper/internal/probe"
)

// Keeper is the core API the CLI drives. *keeper.Keeper implements it.
type Keeper interface {
	VaultExists(ctx context.Context) (bool, error)
	InitVault(ctx context.Context, passphrase []byte) error
	UnlockVault(ctx context.Context, passphrase []byte) error
	Lock()
	Unlocked() bool
	ResetVault(ctx context.Context) error

	CreateDatabaseAsync(ctx context.Context, kind models.Kind, p models.Params) <-chan keeper.CreateResult
	ListDatabases() ([]models.DatabaseRecord, error)
	DeleteDatabase(ctx context.Context, id string) error
	GetStatus(ctx context.Context, id string) (models.RuntimeState, error)
	RefreshStatuses(ctx context.Context) (map[string]models.RuntimeState, error)
	ConnectionString(rec models.DatabaseRecord) (string, error)
	History(ctx context.Context, id string) ([]models.Transition, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	keeper Keeper
	reader *bufio.Reader
	out    io.Writer
	logger logging.Logger

	daemon  pinger
	closers []func() error
}

func newApp(k Keeper, reader *bufio.Reader, out io.Writer, logger logging.Logger) *App {
	return &App{keeper: k, reader: reader, out: out, logger: logger}
}

// NewApp builds the full object graph from cfg: vault store, docker client,
// lifecycle journal, orchestrator and keeper.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dc, err := docker.NewClient(cfg.DockerHost, cfg.StopTimeout, logger)
	if err != nil {
		return nil, err
	}

	journalDSN := cfg.JournalPath()
	if cfg.VaultBackend == config.BackendMemory {
		journalDSN = ":memory:"
	}
	j, err := journal.Open(ctx, journalDSN)
	if err != nil {
		_ = dc.Close()
		return nil, err
	}

	orch := orchestrator.New(dc, cfg, logger,
		orchestrator.WithProber(probe.NewRegistry()),
		orchestrator.WithObserver(j),
		orchestrator.WithCleanupTimeout(cfg.CleanupTimeout),
		orchestrator.WithProbeTimeout(cfg.ProbeTimeout),
	)
	k := keeper.New(store, orch, logger,
		keeper.WithKDFParams(cfg.KDF),
		keeper.WithHistory(j),
	)

	app := newApp(k, bufio.NewReader(os.Stdin), os.Stdout, logger)
	app.daemon = dc
	app.closers = append(app.closers, j.Close, dc.Close)
	return app, nil
}

func newStore(ctx context.Context, cfg *config.Config) (configstore.Store, error) {
	switch cfg.VaultBackend {
	case config.BackendS3:
		return configstore.NewS3Store(ctx, cfg.S3)
	case config.BackendMemory:
		return configstore.NewMemoryStore(), nil
	default:
		return configstore.NewFileStore(cfg.VaultPath()), nil
	}
}

// Run checks the daemon, offers to unlock or create the vault and then
// serves the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to dbkeeper (type 'help' for commands)")

	if a.daemon != nil {
		if err := a.daemon.Ping(ctx); err != nil {
			a.logger.Warn(ctx, "docker daemon unreachable", "error", err)
			fmt.Fprintln(a.out, "Warning: docker daemon is not reachable; provisioning will fail until it is.")
		}
	}

	exists, err := a.keeper.VaultExists(ctx)
	switch {
	case err != nil:
		a.report(err)
	case exists:
		a.report(a.Unlock(ctx))
	default:
		fmt.Fprintln(a.out, "No vault yet. Type 'init' to create one.")
	}

	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// Close locks the vault and releases resources.
func (a *App) Close() error {
	a.keeper.Lock()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) isUnlocked() bool {
	return a.keeper.Unlocked()
}

func (a *App) status() string {
	if a.keeper.Unlocked() {
		return "unlocked"
	}
	return "locked"
}

func (a *App) report(err error) {
	if err != nil {
		fmt.Fprintln(a.out, "Error:", describe(err))
	}
}
