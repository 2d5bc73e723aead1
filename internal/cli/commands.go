package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/orchestrator"
)

var (
	errPassphraseMismatch = errors.New("passphrases do not match")
	errEmptyPassphrase    = errors.New("passphrase must not be empty")
	errAmbiguous          = errors.New("ambiguous database reference")
	errMissingArg         = errors.New("missing database id or name")
)

// Init creates a new vault. The passphrase is asked for twice.
func (a *App) Init(ctx context.Context) error {
	pw, err := GetPassword(a.reader, "New passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	if len(pw) == 0 {
		return errEmptyPassphrase
	}

	again, err := GetPassword(a.reader, "Repeat passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)
	if string(pw) != string(again) {
		return errPassphraseMismatch
	}

	if err := a.keeper.InitVault(ctx, pw); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Vault created and unlocked.")
	return nil
}

func (a *App) Unlock(ctx context.Context) error {
	pw, err := GetPassword(a.reader, "Passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if err := a.keeper.UnlockVault(ctx, pw); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Vault unlocked.")
	return nil
}

func (a *App) Lock(context.Context) error {
	a.keeper.Lock()
	fmt.Fprintln(a.out, "Vault locked.")
	return nil
}

func (a *App) List(context.Context) error {
	recs, err := a.keeper.ListDatabases()
	if err != nil {
		return err
	}
	renderRecords(a.out, recs, nil)
	return nil
}

// Status shows the runtime state of one database, or of all of them when no
// argument is given.
func (a *App) Status(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.Refresh(ctx)
	}
	rec, err := a.resolve(args)
	if err != nil {
		return err
	}
	st, err := a.keeper.GetStatus(ctx, rec.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s\n", rec, styleRuntime(st))
	if st == models.RuntimeUnknown {
		fmt.Fprintln(a.out, "The container is gone; the record is marked orphaned. Use 'delete' to drop it.")
	}
	return nil
}

// Refresh inspects all containers and prints the list with runtime states.
// Partial failures are reported after the table.
func (a *App) Refresh(ctx context.Context) error {
	states, err := a.keeper.RefreshStatuses(ctx)
	if states == nil && err != nil {
		return err
	}
	recs, lerr := a.keeper.ListDatabases()
	if lerr != nil {
		return lerr
	}
	renderRecords(a.out, recs, states)
	return err
}

func (a *App) Conn(_ context.Context, args []string) error {
	rec, err := a.resolve(args)
	if err != nil {
		return err
	}
	s, err := a.keeper.ConnectionString(rec)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, s)
	return nil
}

// Delete removes a database after confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	rec, err := a.resolve(args)
	if err != nil {
		return err
	}
	ok, err := GetConfirmation(a.reader, fmt.Sprintf("Delete %s and its data volume?", rec), a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	err = a.keeper.DeleteDatabase(ctx, rec.ID)
	if errors.Is(err, common.ErrDaemonUnavailable) {
		fmt.Fprintf(a.out, "Deleted %s. Remove container %s and volume %s by hand once docker is reachable.\n",
			rec.Name, orchestrator.ContainerName(rec), rec.VolumeName)
		return err
	}
	if err != nil {
		fmt.Fprintf(a.out, "Deleted %s with warnings.\n", rec.Name)
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s.\n", rec.Name)
	return nil
}

func (a *App) History(ctx context.Context, args []string) error {
	rec, err := a.resolve(args)
	if err != nil {
		return err
	}
	hist, err := a.keeper.History(ctx, rec.ID)
	if err != nil {
		return err
	}
	renderHistory(a.out, hist)
	return nil
}

// Reset wipes the vault after the operator types RESET. Containers are not
// touched.
func (a *App) Reset(ctx context.Context) error {
	answer, err := GetSimpleText(a.reader,
		"This deletes the vault and every stored credential. Containers keep running.\nType RESET to confirm", a.out)
	if err != nil {
		return err
	}
	if answer != "RESET" {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}
	if err := a.keeper.ResetVault(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Vault removed.")
	return nil
}

// resolve finds a record by exact id, exact name or unique id prefix.
func (a *App) resolve(args []string) (models.DatabaseRecord, error) {
	if len(args) == 0 {
		return models.DatabaseRecord{}, errMissingArg
	}
	ref := args[0]

	recs, err := a.keeper.ListDatabases()
	if err != nil {
		return models.DatabaseRecord{}, err
	}

	for _, r := range recs {
		if r.ID == ref || r.Name == ref {
			return r, nil
		}
	}

	var found []models.DatabaseRecord
	for _, r := range recs {
		if strings.HasPrefix(r.ID, ref) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return models.DatabaseRecord{}, fmt.Errorf("%w: %s", common.ErrRecordNotFound, ref)
	case 1:
		return found[0], nil
	}
	return models.DatabaseRecord{}, fmt.Errorf("%w: %s", errAmbiguous, ref)
}
