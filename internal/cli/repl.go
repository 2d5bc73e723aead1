package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/orchestrator"
)

// printlnFn and printFn are test seams for user-facing REPL output.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests provide a lightweight stub.
type execIface interface {
	isUnlocked() bool
	Init(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Create(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Status(ctx context.Context, args []string) error
	Refresh(ctx context.Context) error
	Conn(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Reset(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// It returns on EOF or on "exit"/"quit". Command errors are printed and the
// loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printFn(fmt.Sprintf("dbkeeper (%s)> ", statusFn()))

		line, err := readLine(reader)
		if err != nil {
			printlnFn()
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help", "?":
			if a.isUnlocked() {
				printlnFn("Available commands: create [kind], (l)ist, status [id], refresh, conn <id>, delete <id>, history <id>, lock, reset, exit")
			} else {
				printlnFn("Available commands: init, unlock, reset, exit")
			}
		case "init":
			cmdErr = a.Init(ctx)
		case "unlock":
			cmdErr = a.Unlock(ctx)
		case "lock":
			cmdErr = a.Lock(ctx)
		case "create", "new":
			cmdErr = a.Create(ctx, args)
		case "l", "ls", "list":
			cmdErr = a.List(ctx)
		case "status":
			cmdErr = a.Status(ctx, args)
		case "refresh":
			cmdErr = a.Refresh(ctx)
		case "conn":
			cmdErr = a.Conn(ctx, args)
		case "delete", "rm":
			cmdErr = a.Delete(ctx, args)
		case "history":
			cmdErr = a.History(ctx, args)
		case "reset":
			cmdErr = a.Reset(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", describe(cmdErr))
		}
	}
}

// describe turns an error into a message for the operator. It never adds
// detail beyond what err already carries.
func describe(err error) string {
	var pe *orchestrator.ProvisionError
	switch {
	case errors.Is(err, common.ErrAuth):
		return "wrong passphrase or damaged vault"
	case errors.Is(err, common.ErrVaultLocked):
		return "vault is locked, run 'unlock' first"
	case errors.Is(err, common.ErrVaultExists):
		return "a vault already exists, use 'unlock' or 'reset'"
	case errors.Is(err, common.ErrNotFound):
		return "no vault found, run 'init' first"
	case errors.As(err, &pe) && len(pe.Warnings) > 0:
		return fmt.Sprintf("%v\n  cleanup warnings: %v", pe, pe.Warning())
	default:
		return err.Error()
	}
}
