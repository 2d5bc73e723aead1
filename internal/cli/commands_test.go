package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/config"
	"github.com/dmitrijs2005/dbkeeper/internal/configstore"
	"github.com/dmitrijs2005/dbkeeper/internal/cryptox"
	"github.com/dmitrijs2005/dbkeeper/internal/docker"
	"github.com/dmitrijs2005/dbkeeper/internal/journal"
	"github.com/dmitrijs2005/dbkeeper/internal/keeper"
	"github.com/dmitrijs2005/dbkeeper/internal/logging"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/orchestrator"
)

var testKDF = cryptox.KDFParams{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLen: 32}

type testApp struct {
	*App
	fake *docker.Fake
	out  *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	stubTerminal(t, false, nil)

	ctx := context.Background()
	j, err := journal.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	fake := docker.NewFake()
	orch := orchestrator.New(fake, config.Default(), logging.Nop(), orchestrator.WithObserver(j))
	k := keeper.New(configstore.NewMemoryStore(), orch, logging.Nop(),
		keeper.WithKDFParams(testKDF), keeper.WithHistory(j))

	var out bytes.Buffer
	return &testApp{App: newApp(k, rdr(""), &out, logging.Nop()), fake: fake, out: &out}
}

// input replaces the pending stdin lines.
func (ta *testApp) input(lines ...string) *testApp {
	ta.reader = rdr(strings.Join(lines, "\n") + "\n")
	ta.out.Reset()
	return ta
}

func (ta *testApp) initVault(t *testing.T) {
	t.Helper()
	require.NoError(t, ta.input("pass", "pass").Init(context.Background()))
}

func (ta *testApp) createPostgres(t *testing.T, name, port string) models.DatabaseRecord {
	t.Helper()
	require.NoError(t, ta.input(name, "alice", "", "app", port).Create(context.Background(), []string{"postgres"}))
	recs, err := ta.keeper.ListDatabases()
	require.NoError(t, err)
	for _, r := range recs {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("record %s not stored", name)
	return models.DatabaseRecord{}
}

func TestInit(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)

	assert.ErrorIs(t, ta.input("", "").Init(ctx), errEmptyPassphrase)
	assert.ErrorIs(t, ta.input("one", "two").Init(ctx), errPassphraseMismatch)
	assert.False(t, ta.keeper.Unlocked())

	require.NoError(t, ta.input("pass", "pass").Init(ctx))
	assert.True(t, ta.keeper.Unlocked())
	assert.Contains(t, ta.out.String(), "Vault created")
	assert.NotContains(t, ta.out.String(), "pass\n")

	assert.ErrorIs(t, ta.input("pass", "pass").Init(ctx), common.ErrVaultExists)
}

func TestLockUnlock(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)

	assert.ErrorIs(t, ta.input("x").Unlock(ctx), common.ErrNotFound)
	ta.initVault(t)

	require.NoError(t, ta.Lock(ctx))
	assert.Equal(t, "locked", ta.status())
	assert.ErrorIs(t, ta.List(ctx), common.ErrVaultLocked)

	assert.ErrorIs(t, ta.input("wrong").Unlock(ctx), common.ErrAuth)
	require.NoError(t, ta.input("pass").Unlock(ctx))
	assert.Equal(t, "unlocked", ta.status())
}

func TestCreate_Postgres(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	ta.initVault(t)

	rec := ta.createPostgres(t, "orders", "")
	out := ta.out.String()
	assert.Contains(t, out, "Ready: orders (postgres, ")
	assert.Contains(t, out, "postgresql://alice:")
	assert.Contains(t, out, "@localhost:5432/app")

	assert.Equal(t, 5432, rec.Port)
	assert.Len(t, rec.Password, 2*generatedSecretBytes)
	assert.Equal(t, models.StatusReady, rec.Status)
	assert.Equal(t, 1, ta.fake.Running())

	require.NoError(t, ta.input().List(ctx))
	assert.Contains(t, ta.out.String(), "orders")
	assert.NotContains(t, ta.out.String(), rec.Password)
}

func TestCreate_PromptsForKind(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	ta.initVault(t)

	require.NoError(t, ta.input("Redis", "cache", "6390").Create(ctx, nil))
	assert.Contains(t, ta.out.String(), "redis://localhost:6390")
}

func TestCreate_Errors(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)

	assert.ErrorIs(t, ta.input().Create(ctx, []string{"postgres"}), common.ErrVaultLocked)

	ta.initVault(t)
	assert.ErrorIs(t, ta.input().Create(ctx, []string{"oracle"}), common.ErrUnknownKind)
	assert.ErrorIs(t, ta.input("cache", "abc").Create(ctx, []string{"redis"}), common.ErrValidation)
	assert.ErrorIs(t, ta.input("", "6391").Create(ctx, []string{"redis"}), common.ErrValidation)

	ta.fake.PullErr = assert.AnError
	err := ta.input("cache", "6392").Create(ctx, []string{"redis"})
	assert.ErrorIs(t, err, common.ErrImagePullFailed)

	recs, err := ta.keeper.ListDatabases()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestConnAndResolve(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	ta.initVault(t)
	rec := ta.createPostgres(t, "orders", "")
	ta.createPostgres(t, "billing", "5433")

	require.NoError(t, ta.input().Conn(ctx, []string{"orders"}))
	assert.Contains(t, ta.out.String(), "postgresql://")

	require.NoError(t, ta.input().Conn(ctx, []string{rec.ID[:8]}))
	assert.Contains(t, ta.out.String(), "postgresql://")

	assert.ErrorIs(t, ta.input().Conn(ctx, nil), errMissingArg)
	assert.ErrorIs(t, ta.input().Conn(ctx, []string{"nope"}), common.ErrRecordNotFound)

	_, err := ta.resolve([]string{""})
	assert.ErrorIs(t, err, errAmbiguous)
}

func TestStatusAndRefresh(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	ta.initVault(t)
	rec := ta.createPostgres(t, "orders", "")

	require.NoError(t, ta.input().Status(ctx, []string{"orders"}))
	assert.Contains(t, ta.out.String(), string(models.RuntimeRunning))

	ta.fake.RemoveExternally(rec.ContainerID)
	require.NoError(t, ta.input().Status(ctx, []string{"orders"}))
	assert.Contains(t, ta.out.String(), "orphaned")

	require.NoError(t, ta.input().Refresh(ctx))
	out := ta.out.String()
	assert.Contains(t, out, "RUNTIME")
	assert.Contains(t, out, string(models.StatusOrphaned))

	require.NoError(t, ta.input().Status(ctx, nil))
	assert.Contains(t, ta.out.String(), "RUNTIME")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	ta.initVault(t)
	rec := ta.createPostgres(t, "orders", "")

	require.NoError(t, ta.input("n").Delete(ctx, []string{"orders"}))
	assert.Contains(t, ta.out.String(), "Cancelled")
	assert.Equal(t, 1, ta.fake.Running())

	require.NoError(t, ta.input("yes").Delete(ctx, []string{"orders"}))
	assert.Contains(t, ta.out.String(), "Deleted orders.")
	assert.Empty(t, ta.fake.ContainerIDs())
	assert.False(t, ta.fake.HasVolume(rec.VolumeName))

	recs, _ := ta.keeper.ListDatabases()
	assert.Empty(t, recs)
}

func TestDelete_DaemonUnavailable(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	ta.initVault(t)
	rec := ta.createPostgres(t, "orders", "")

	ta.fake.Unavailable = true
	err := ta.input("y").Delete(ctx, []string{"orders"})
	assert.ErrorIs(t, err, common.ErrDaemonUnavailable)
	assert.Contains(t, ta.out.String(), rec.VolumeName)

	recs, _ := ta.keeper.ListDatabases()
	assert.Empty(t, recs)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	ta.initVault(t)
	ta.createPostgres(t, "orders", "")

	require.NoError(t, ta.input().History(ctx, []string{"orders"}))
	out := ta.out.String()
	assert.Contains(t, out, string(models.StageRequested))
	assert.Contains(t, out, string(models.StageReady))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t)
	ta.initVault(t)
	ta.createPostgres(t, "orders", "")

	require.NoError(t, ta.input("reset").Reset(ctx))
	assert.Contains(t, ta.out.String(), "Cancelled")
	assert.True(t, ta.keeper.Unlocked())

	require.NoError(t, ta.input("RESET").Reset(ctx))
	assert.False(t, ta.keeper.Unlocked())
	exists, err := ta.keeper.VaultExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 1, ta.fake.Running())
}

func TestRun_UnlocksExistingVault(t *testing.T) {
	repl := captureOutput(t)
	ta := newTestApp(t)
	ta.initVault(t)
	ta.keeper.Lock()

	ta.input("pass", "list", "exit")
	require.NoError(t, ta.Run(context.Background()))

	assert.Contains(t, ta.out.String(), "Vault unlocked.")
	assert.Contains(t, ta.out.String(), "No databases.")
	assert.Contains(t, repl.String(), "dbkeeper (unlocked)> ")
	assert.False(t, ta.keeper.Unlocked())
}

func TestRun_NoVault(t *testing.T) {
	captureOutput(t)
	ta := newTestApp(t)

	ta.input("exit")
	require.NoError(t, ta.Run(context.Background()))
	assert.Contains(t, ta.out.String(), "Type 'init'")
}
