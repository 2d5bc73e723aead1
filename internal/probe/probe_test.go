package probe

import (
	"bufio"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
)

// closedPort returns a loopback port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", Host+":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// pongServer answers every read with a RESP "+PONG".
func pongServer(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", Host+":0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				r := bufio.NewReader(c)
				buf := make([]byte, 512)
				for {
					if _, err := r.Read(buf); err != nil {
						return
					}
					if _, err := c.Write([]byte("+PONG\r\n")); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func TestRedis_Pong(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := models.DatabaseRecord{Kind: models.KindRedis, Port: pongServer(t)}
	assert.NoError(t, Redis(ctx, rec))
}

func TestProbes_RefusedPort(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	port := closedPort(t)
	rec := models.DatabaseRecord{Username: "alice", Password: "secret", DatabaseName: "app", Port: port}

	for name, fn := range map[string]Func{"postgres": Postgres, "mysql": MySQL, "redis": Redis} {
		t.Run(name, func(t *testing.T) {
			err := fn(ctx, rec)
			require.Error(t, err)
			assert.NotContains(t, err.Error(), "secret")
		})
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	reg := NewRegistry()

	var got models.DatabaseRecord
	reg.Register(models.KindPostgres, func(_ context.Context, r models.DatabaseRecord) error {
		got = r
		return nil
	})

	rec := models.DatabaseRecord{ID: "r1", Kind: models.KindPostgres, Port: 5432}
	require.NoError(t, reg.Check(context.Background(), rec))
	assert.Equal(t, "r1", got.ID)

	err := reg.Check(context.Background(), models.DatabaseRecord{Kind: "oracle"})
	assert.True(t, errors.Is(err, common.ErrUnknownKind))
}
