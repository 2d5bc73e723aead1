// Package cli provides the interactive dbkeeper command-line client.
//
// It wires configuration, the vault store, the docker daemon client, the
// lifecycle journal and the keeper, then runs a small REPL. Typical flow:
// unlock (or init) the vault, create databases through a per-engine wizard,
// list them, check their status and print connection strings.
//
// Commands
//
//	init              create a new vault
//	unlock | lock     open or close the vault
//	create [kind]     provision postgres, mysql or redis
//	list | ls         show stored databases
//	status [id|name]  runtime state of one or all databases
//	refresh           re-inspect all containers
//	conn <id|name>    print the connection string
//	delete <id|name>  remove container, volume and record
//	history <id|name> lifecycle transitions of a database
//	reset             delete the vault after typed confirmation
//	exit | quit       leave
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
