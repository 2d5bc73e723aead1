// Package probe checks from the host side that a published database port
// accepts client connections. It complements the in-container exec probes
// run through the docker daemon.
package probe

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
)

// Host is where published ports are reachable from dbkeeper itself.
const Host = "127.0.0.1"

// Func performs one connectivity check. A nil error means ready.
type Func func(ctx context.Context, r models.DatabaseRecord) error

// Checker runs the connect check matching a record's kind.
type Checker interface {
	Check(ctx context.Context, r models.DatabaseRecord) error
}

// Registry dispatches by kind.
type Registry struct {
	funcs map[models.Kind]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: map[models.Kind]Func{
		models.KindPostgres: Postgres,
		models.KindMySQL:    MySQL,
		models.KindRedis:    Redis,
	}}
}

// Register replaces the check for kind.
func (r *Registry) Register(kind models.Kind, fn Func) {
	r.funcs[kind] = fn
}

func (r *Registry) Check(ctx context.Context, rec models.DatabaseRecord) error {
	fn, ok := r.funcs[rec.Kind]
	if !ok {
		return fmt.Errorf("%w: no connect probe for %q", common.ErrUnknownKind, rec.Kind)
	}
	return fn(ctx, rec)
}

func addr(r models.DatabaseRecord) string {
	return net.JoinHostPort(Host, strconv.Itoa(r.Port))
}

// Postgres opens a pgx connection with the record's credentials and pings it.
func Postgres(ctx context.Context, r models.DatabaseRecord) error {
	cfg, err := pgx.ParseConfig("")
	if err != nil {
		return err
	}
	cfg.Host = Host
	cfg.Port = uint16(r.Port)
	cfg.User = r.Username
	cfg.Password = r.Password
	cfg.Database = r.DatabaseName
	cfg.TLSConfig = nil
	cfg.Fallbacks = nil

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("postgres connect %s: %w", addr(r), err)
	}
	defer conn.Close(context.Background())

	return conn.Ping(ctx)
}

// MySQL pings through database/sql with the go-sql-driver DSN builder.
func MySQL(ctx context.Context, r models.DatabaseRecord) error {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = addr(r)
	cfg.User = r.Username
	cfg.Passwd = r.Password
	cfg.DBName = r.DatabaseName
	cfg.AllowNativePasswords = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return err
	}
	db := sql.OpenDB(connector)
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping %s: %w", cfg.Addr, err)
	}
	return nil
}

// Redis sends PING with go-redis.
func Redis(ctx context.Context, r models.DatabaseRecord) error {
	client := redis.NewClient(&redis.Options{
		Addr:       addr(r),
		MaxRetries: -1,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", addr(r), err)
	}
	return nil
}
