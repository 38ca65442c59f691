//go:build integration

package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const outboxSchema = `CREATE TABLE outbox (
    event_id BIGSERIAL PRIMARY KEY,
    aggregate_type TEXT NOT NULL,
    aggregate_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    topic TEXT NOT NULL,
    partition_key TEXT NOT NULL,
    payload JSONB NOT NULL,
    dedupe_key TEXT UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    claimed_at TIMESTAMPTZ,
    published_at TIMESTAMPTZ
)`

func startOutboxDatabase(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("greentrace"),
		postgrescontainer.WithUsername("greentrace"),
		postgrescontainer.WithPassword("greentrace"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var pool *pgxpool.Pool
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err = pgxpool.New(ctx, connStr)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		require.False(t, time.Now().After(deadline), "database did not come up: %v", err)
		time.Sleep(time.Second)
	}
	t.Cleanup(func() { pool.Close() })

	_, err = pool.Exec(ctx, outboxSchema)
	require.NoError(t, err)
	return pool
}

func insertOutboxRow(t *testing.T, ctx context.Context, pool *pgxpool.Pool, aggregateID string, claimedAt, publishedAt interface{}) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(ctx, `INSERT INTO outbox
        (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key, claimed_at, published_at)
        VALUES ('activity', $1, $2, $3, 'u1', '{}', $1 || ':' || $2, $4, $5)
        RETURNING event_id`,
		aggregateID, EventActivityRecorded, TopicFor(EventActivityRecorded), claimedAt, publishedAt).Scan(&id)
	require.NoError(t, err)
	return id
}

// cancelingWriter mimics a shutdown racing an in-flight publish: the parent
// context is canceled while WriteMessages is on the wire.
type cancelingWriter struct {
	cancel context.CancelFunc
}

func (w *cancelingWriter) WriteMessages(context.Context, string, ...kafka.Message) error {
	w.cancel()
	return context.Canceled
}

func TestFetchAndClaimRetriesExpiredClaims(t *testing.T) {
	ctx := context.Background()
	pool := startOutboxDatabase(t, ctx)

	unclaimed := insertOutboxRow(t, ctx, pool, "act-1", nil, nil)
	stale := insertOutboxRow(t, ctx, pool, "act-2", time.Now().UTC().Add(-2*claimLease), nil)
	fresh := insertOutboxRow(t, ctx, pool, "act-3", time.Now().UTC(), nil)
	published := insertOutboxRow(t, ctx, pool, "act-4", nil, time.Now().UTC())

	d := NewDispatcher(pool, nil, zerolog.Nop(), time.Second, 10)

	messages, err := d.fetchAndClaim(ctx)
	require.NoError(t, err)

	got := eventIDs(messages)
	require.ElementsMatch(t, []int64{unclaimed, stale}, got)
	require.NotContains(t, got, fresh)
	require.NotContains(t, got, published)
}

func TestPublishFailureOnShutdownReleasesClaims(t *testing.T) {
	ctx := context.Background()
	pool := startOutboxDatabase(t, ctx)

	id := insertOutboxRow(t, ctx, pool, "act-1", nil, nil)

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d := NewDispatcher(pool, &cancelingWriter{cancel: cancel}, zerolog.Nop(), time.Second, 10)

	require.NoError(t, d.processBatch(batchCtx))

	// The claim must be released despite the canceled batch context, so the
	// row is eligible on the next tick rather than stranded.
	var claimed *time.Time
	var published *time.Time
	err := pool.QueryRow(ctx, `SELECT claimed_at, published_at FROM outbox WHERE event_id=$1`, id).Scan(&claimed, &published)
	require.NoError(t, err)
	require.Nil(t, claimed)
	require.Nil(t, published)
}
