package queue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tracebeam/courier/queue"
	"github.com/tracebeam/courier/storage"
	"github.com/tracebeam/courier/test/testutil"
	"github.com/tracebeam/courier/types"
)

func getRec(s string) types.GetRecord {
	return types.GetRecord(s)
}

func postRec(pairs ...string) *types.PostRecord {
	p := types.NewPayload()
	for i := 0; i+1 < len(pairs); i += 2 {
		p.Add(pairs[i], pairs[i+1])
	}
	return types.NewPostRecord(p)
}

func TestStoreKeyNamespacing(t *testing.T) {
	ctx := context.Background()
	post := queue.New(ctx, types.ModePost, "inst-1")
	get := queue.New(ctx, types.ModeGet, "inst-1")

	require.Equal(t, "courier_queue_inst-1_post", post.Key())
	require.Equal(t, "courier_queue_inst-1_get", get.Key())
}

func TestStoreFIFO(t *testing.T) {
	ctx := context.Background()
	s := queue.New(ctx, types.ModeGet, "t")

	s.Enqueue(ctx, getRec("?e=1"))
	s.Enqueue(ctx, getRec("?e=2"))
	s.Enqueue(ctx, getRec("?e=3"))

	require.Equal(t, 3, s.Len())
	require.Equal(t, getRec("?e=1"), s.Head())

	s.RemoveFront(ctx, 1)
	require.Equal(t, getRec("?e=2"), s.Head())

	s.RemoveFront(ctx, 2)
	require.Equal(t, 0, s.Len())
	require.Nil(t, s.Head())
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()

	s1 := queue.New(ctx, types.ModeGet, "t", queue.WithStorage(kv))
	s1.Enqueue(ctx, getRec("?e=1"))
	s1.Enqueue(ctx, getRec("?e=2"))

	s2 := queue.New(ctx, types.ModeGet, "t", queue.WithStorage(kv))
	require.Equal(t, 2, s2.Len())
	require.Equal(t, getRec("?e=1"), s2.Head())
}

func TestStoreCorruptStateStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, "courier_queue_t_get", []byte("not json at all")))

	s := queue.New(ctx, types.ModeGet, "t", queue.WithStorage(kv))
	require.Equal(t, 0, s.Len())
}

func TestStoreEnqueueSurvivesPersistFailure(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewFlakyKV()
	metrics := testutil.NewTestMetricsCollector()

	s := queue.New(ctx, types.ModeGet, "t",
		queue.WithStorage(kv),
		queue.WithMetrics(metrics),
	)

	kv.FailSets(true)
	persisted := s.Enqueue(ctx, getRec("?e=1"))

	require.False(t, persisted)
	require.Equal(t, 1, s.Len())
	require.Equal(t, int64(1), metrics.PersistErrors[types.ModeGet])
}

func TestStorePersistTruncation(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()

	s := queue.New(ctx, types.ModeGet, "t",
		queue.WithStorage(kv),
		queue.WithMaxPersisted(2),
	)
	s.Enqueue(ctx, getRec("?e=1"))
	s.Enqueue(ctx, getRec("?e=2"))
	s.Enqueue(ctx, getRec("?e=3"))

	// In-memory queue keeps everything; only the mirror is truncated.
	require.Equal(t, 3, s.Len())

	reloaded := queue.New(ctx, types.ModeGet, "t", queue.WithStorage(kv))
	require.Equal(t, 2, reloaded.Len())
	require.Equal(t, getRec("?e=1"), reloaded.Head())
}

func TestSelectBatchByteBudget(t *testing.T) {
	ctx := context.Background()
	s := queue.New(ctx, types.ModePost, "t")

	r1 := postRec("e", "pv")
	r2 := postRec("e", "se")
	r3 := postRec("e", "tr")
	s.Enqueue(ctx, r1)
	s.Enqueue(ctx, r2)
	s.Enqueue(ctx, r3)

	// Budget fits the first two records but not the third.
	batch := s.SelectBatch(r1.Bytes + r2.Bytes + 1)
	require.Len(t, batch, 2)

	// A budget smaller than the head record still selects it.
	batch = s.SelectBatch(1)
	require.Len(t, batch, 1)

	// A generous budget selects everything.
	batch = s.SelectBatch(1 << 20)
	require.Len(t, batch, 3)
}

func TestSelectBatchEmptyQueue(t *testing.T) {
	s := queue.New(context.Background(), types.ModePost, "t")
	require.Empty(t, s.SelectBatch(1000))
}

func TestStoreMsgpCodecRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()

	s1 := queue.New(ctx, types.ModePost, "t",
		queue.WithStorage(kv),
		queue.WithCodec(queue.MsgpCodec{}),
	)
	s1.Enqueue(ctx, postRec("e", "pv", "url", "https://example.com"))

	s2 := queue.New(ctx, types.ModePost, "t",
		queue.WithStorage(kv),
		queue.WithCodec(queue.MsgpCodec{}),
	)
	require.Equal(t, 1, s2.Len())

	head := s2.Head().(*types.PostRecord)
	got, _ := head.Payload.Get("url")
	require.Equal(t, "https://example.com", got)
}

func TestStoreRemoveFrontRepersists(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()

	s := queue.New(ctx, types.ModeGet, "t", queue.WithStorage(kv))
	s.Enqueue(ctx, getRec("?e=1"))
	s.Enqueue(ctx, getRec("?e=2"))
	s.RemoveFront(ctx, 1)

	reloaded := queue.New(ctx, types.ModeGet, "t", queue.WithStorage(kv))
	require.Equal(t, 1, reloaded.Len())
	require.Equal(t, getRec("?e=2"), reloaded.Head())
}
