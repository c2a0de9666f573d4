package integration_test

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	courier "github.com/tracebeam/courier"
	"github.com/tracebeam/courier/storage"
	"github.com/tracebeam/courier/test/testutil"
	"github.com/tracebeam/courier/types"
)

// openPostgres connects to the server named by COURIER_POSTGRES_DSN, or
// skips the test when the variable is unset.
func openPostgres(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("COURIER_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skipping: COURIER_POSTGRES_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	db := openPostgres(t)

	kv, err := storage.NewSQLStore(ctx, db,
		storage.WithDialect(storage.DialectPostgres),
		storage.WithTableName("courier_kv_it"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), "DROP TABLE IF EXISTS courier_kv_it")
	})

	_, err = kv.Get(ctx, "absent")
	require.ErrorIs(t, err, types.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "slot", []byte("v1")))
	require.NoError(t, kv.Set(ctx, "slot", []byte("v2")))

	got, err := kv.Get(ctx, "slot")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)

	require.NoError(t, kv.Delete(ctx, "slot"))
	_, err = kv.Get(ctx, "slot")
	require.ErrorIs(t, err, types.ErrKeyNotFound)
}

func TestPostgresBackedEmitter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	db := openPostgres(t)

	kv, err := storage.NewSQLStore(ctx, db,
		storage.WithDialect(storage.DialectPostgres),
		storage.WithTableName("courier_emitter_it"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), "DROP TABLE IF EXISTS courier_emitter_it")
	})

	// Queue events without a reachable drain, then let a second emitter
	// with the same instance identity recover and deliver them.
	e1, err := courier.New(
		courier.WithInstanceID("pg-it"),
		courier.WithStorage(kv),
		courier.WithBufferSize(100),
	)
	require.NoError(t, err)

	for _, url := range []string{"https://example.com/a", "https://example.com/b"} {
		p := &courier.Payload{}
		p.Add("e", "pv")
		p.Add("url", url)
		require.NoError(t, e1.Track(p))
	}
	require.Equal(t, 2, e1.Pending())

	collector := testutil.StartCollector(t, http.StatusOK)
	e2, err := courier.New(
		courier.WithInstanceID("pg-it"),
		courier.WithStorage(kv),
		courier.WithBufferSize(100),
		courier.WithCollectorURL(collector.URL()),
	)
	require.NoError(t, err)
	require.Equal(t, 2, e2.Pending())

	require.NoError(t, e2.FlushSync())
	require.Equal(t, 0, e2.Pending())
	require.Equal(t, 1, collector.RequestCount())
}
