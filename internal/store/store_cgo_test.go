//go:build cgo

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/pitchscore/internal/config"
)

func TestOpenLibsqlMemoryStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, "libsql", s.Driver())
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Close())
}

func TestOpenLibsqlLocalStoreConfiguresSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: "file:" + t.TempDir() + "/pitchscore.db"})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.Equal(t, 1, s.DB.Stats().MaxOpenConnections)

	var busyTimeout int
	require.NoError(t, s.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
	require.GreaterOrEqual(t, busyTimeout, 1000)
}
