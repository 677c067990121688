package resync

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewise/recsync/internal/catalog"
	"github.com/storewise/recsync/internal/items"
	"github.com/storewise/recsync/internal/queue"
	"github.com/storewise/recsync/internal/remote"
)

// fakeAPI serves canned overview ids and a canned manifest, recording
// which kinds were asked for.
type fakeAPI struct {
	overview     map[string][]int64
	overviewErr  error
	manifest     *remote.SyncManifest
	manifestErr  error
	overviewKind []string
}

var _ remote.API = (*fakeAPI)(nil)

func (f *fakeAPI) Create(context.Context, string, any) error             { return nil }
func (f *fakeAPI) Update(context.Context, string, []string, any) error  { return nil }
func (f *fakeAPI) Delete(context.Context, string, []string) error       { return nil }
func (f *fakeAPI) DeleteAll(context.Context, string) error              { return nil }
func (f *fakeAPI) BatchCreate(context.Context, string, []any) error     { return nil }
func (f *fakeAPI) Cancel(context.Context, string, string) error         { return nil }

func (f *fakeAPI) Overview(_ context.Context, kind string) ([]int64, error) {
	f.overviewKind = append(f.overviewKind, kind)
	if f.overviewErr != nil {
		return nil, f.overviewErr
	}
	return f.overview[kind], nil
}

func (f *fakeAPI) Sync(context.Context) (*remote.SyncManifest, error) {
	return f.manifest, f.manifestErr
}

func testEngine(api *fakeAPI, cfg Config) (*Engine, *queue.MemoryStore, *catalog.MemoryStore) {
	store := queue.NewMemoryStore()
	cat := catalog.NewMemoryStore()
	builder := items.NewBuilder(cat, items.BuilderConfig{Currency: "USD"})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, cat, builder, api, logger, cfg), store, cat
}

func putPublished(cat *catalog.MemoryStore, ids ...int64) {
	for _, id := range ids {
		cat.PutProduct(&catalog.Product{ID: id, Status: catalog.StatusPublished, RegularPrice: "10"})
	}
}

func initJobs(store *queue.MemoryStore, model queue.Model) [][]int64 {
	var chunks [][]int64
	for _, job := range store.Snapshot() {
		if job.Model != model || job.Action != queue.ActionInit {
			continue
		}
		var payload queue.InitPayload
		if err := queue.DecodeInto(&job, &payload); err != nil {
			continue
		}
		chunks = append(chunks, payload.IDs)
	}
	return chunks
}

func TestBootstrapDiffsAgainstOverview(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{overview: map[string][]int64{
		"products": {1, 2, 3},
	}}
	engine, store, cat := testEngine(api, Config{})

	putPublished(cat, 1, 2, 3, 4, 5)

	require.NoError(t, engine.Bootstrap(ctx, false))

	chunks := initJobs(store, queue.ModelProducts)
	require.Len(t, chunks, 1)
	assert.Equal(t, []int64{4, 5}, chunks[0])
}

func TestBootstrapRunsOncePerInstall(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{overview: map[string][]int64{}}
	engine, store, cat := testEngine(api, Config{})

	putPublished(cat, 1)

	require.NoError(t, engine.Bootstrap(ctx, false))
	seeded := len(store.Snapshot())
	require.NotZero(t, seeded)

	// Second pass sees the existing init jobs and does nothing.
	require.NoError(t, engine.Bootstrap(ctx, false))
	assert.Len(t, store.Snapshot(), seeded)
}

func TestBootstrapChunking(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{overview: map[string][]int64{}}
	engine, store, cat := testEngine(api, Config{ChunkSize: 2})

	putPublished(cat, 1, 2, 3, 4, 5)

	require.NoError(t, engine.Bootstrap(ctx, false))

	chunks := initJobs(store, queue.ModelProducts)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int64{1, 2}, chunks[0])
	assert.Equal(t, []int64{3, 4}, chunks[1])
	assert.Equal(t, []int64{5}, chunks[2])
}

func TestBootstrapForceSkipsOverview(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{overview: map[string][]int64{
		"products": {1, 2, 3, 4, 5},
	}}
	engine, store, cat := testEngine(api, Config{})

	putPublished(cat, 1, 2, 3)

	require.NoError(t, engine.Bootstrap(ctx, true))

	assert.Empty(t, api.overviewKind)
	chunks := initJobs(store, queue.ModelProducts)
	require.Len(t, chunks, 1)
	assert.Equal(t, []int64{1, 2, 3}, chunks[0])
}

func TestBootstrapUnauthorizedAborts(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{overviewErr: remote.ErrUnauthorized}
	engine, store, cat := testEngine(api, Config{})

	putPublished(cat, 1)

	err := engine.Bootstrap(ctx, false)
	require.ErrorIs(t, err, remote.ErrUnauthorized)
	assert.Empty(t, store.Snapshot())
}

func TestBootstrapSeedsAllKinds(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{overview: map[string][]int64{}}
	engine, store, cat := testEngine(api, Config{})

	putPublished(cat, 1)
	cat.PutUser(&catalog.User{ID: 7})
	cat.PutOrder(&catalog.Order{ID: 9, CustomerID: 7})
	cat.PutCategory(&catalog.Category{ID: 3, Name: "Chairs"})

	require.NoError(t, engine.Bootstrap(ctx, false))

	assert.Len(t, initJobs(store, queue.ModelProducts), 1)
	assert.Len(t, initJobs(store, queue.ModelUsers), 1)
	assert.Len(t, initJobs(store, queue.ModelOrders), 1)
	assert.Len(t, initJobs(store, queue.ModelCategories), 1)
}

func TestRunPushFullReseedsKind(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{manifest: &remote.SyncManifest{
		Products: &remote.KindDiff{Full: true},
	}}
	engine, store, cat := testEngine(api, Config{})

	putPublished(cat, 1, 2)

	require.NoError(t, engine.RunPush(ctx))

	jobs := store.Snapshot()
	require.Len(t, jobs, 2)
	assert.Equal(t, queue.ActionDeleteAll, jobs[0].Action)
	assert.Equal(t, queue.ModelProducts, jobs[0].Model)

	chunks := initJobs(store, queue.ModelProducts)
	require.Len(t, chunks, 1)
	assert.Equal(t, []int64{1, 2}, chunks[0])
}

func TestRunPushProductVanishedDeleteOnly(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{manifest: &remote.SyncManifest{
		Products: &remote.KindDiff{IDs: []int64{7}},
	}}
	engine, store, _ := testEngine(api, Config{})

	require.NoError(t, engine.RunPush(ctx))

	jobs := store.Snapshot()
	require.Len(t, jobs, 1)
	assert.Equal(t, queue.ActionDelete, jobs[0].Action)

	var payload queue.ProductDeletePayload
	require.NoError(t, queue.DecodeInto(&jobs[0], &payload))
	assert.Equal(t, int64(7), payload.ProductID)
}

func TestRunPushProductRecreated(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{manifest: &remote.SyncManifest{
		Products: &remote.KindDiff{IDs: []int64{7}},
	}}
	engine, store, cat := testEngine(api, Config{})

	cat.PutProduct(&catalog.Product{
		ID:           7,
		Name:         "Lamp",
		Status:       catalog.StatusPublished,
		RegularPrice: "10",
	})

	require.NoError(t, engine.RunPush(ctx))

	jobs := store.Snapshot()
	require.Len(t, jobs, 2)
	assert.Equal(t, queue.ActionDelete, jobs[0].Action)
	assert.Equal(t, queue.ActionCreate, jobs[1].Action)

	var payload queue.ProductCreatePayload
	require.NoError(t, queue.DecodeInto(&jobs[1], &payload))
	assert.Equal(t, "Lamp", payload.Item.Name)
}

func TestRunPushVariableProductRecreatedPerVariant(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{manifest: &remote.SyncManifest{
		Products: &remote.KindDiff{IDs: []int64{200}},
	}}
	engine, store, cat := testEngine(api, Config{})

	cat.PutProduct(&catalog.Product{
		ID:           200,
		Status:       catalog.StatusPublished,
		RegularPrice: "100",
		ChildIDs:     []int64{201, 202},
	})
	cat.PutProduct(&catalog.Product{ID: 201, ParentID: 200, Status: catalog.StatusPublished, RegularPrice: "110"})
	cat.PutProduct(&catalog.Product{ID: 202, ParentID: 200, Status: catalog.StatusPublished, RegularPrice: "120"})

	require.NoError(t, engine.RunPush(ctx))

	jobs := store.Snapshot()
	require.Len(t, jobs, 3)
	assert.Equal(t, queue.ActionDelete, jobs[0].Action)
	assert.Equal(t, queue.ModelVariants, jobs[1].Model)
	assert.Equal(t, queue.ModelVariants, jobs[2].Model)

	var payload queue.ProductCreatePayload
	require.NoError(t, queue.DecodeInto(&jobs[1], &payload))
	assert.Equal(t, int64(200), payload.Item.ProductID)
	assert.Equal(t, int64(201), payload.Item.VariantID.ID())
}

func TestRunPushUnpublishedProductDeleteOnly(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{manifest: &remote.SyncManifest{
		Products: &remote.KindDiff{IDs: []int64{7}},
	}}
	engine, store, cat := testEngine(api, Config{})

	cat.PutProduct(&catalog.Product{ID: 7, Status: "draft"})

	require.NoError(t, engine.RunPush(ctx))

	jobs := store.Snapshot()
	require.Len(t, jobs, 1)
	assert.Equal(t, queue.ActionDelete, jobs[0].Action)
}

func TestRunPushUsers(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{manifest: &remote.SyncManifest{
		Users: &remote.KindDiff{IDs: []int64{7, 8}},
	}}
	engine, store, cat := testEngine(api, Config{})

	cat.PutUser(&catalog.User{ID: 7, Email: "jo@example.com"})

	require.NoError(t, engine.RunPush(ctx))

	// Existing user: delete then create. Vanished user: delete only.
	jobs := store.Snapshot()
	require.Len(t, jobs, 3)
	assert.Equal(t, queue.ActionDelete, jobs[0].Action)
	assert.Equal(t, queue.ActionCreate, jobs[1].Action)
	assert.Equal(t, queue.ActionDelete, jobs[2].Action)

	var payload queue.UserCreatePayload
	require.NoError(t, queue.DecodeInto(&jobs[1], &payload))
	assert.Equal(t, "jo@example.com", payload.Item.Email)
}

func TestRunPushOrdersGuestOrdering(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{manifest: &remote.SyncManifest{
		Orders: &remote.KindDiff{IDs: []int64{500}},
	}}
	engine, store, cat := testEngine(api, Config{})

	cat.PutOrder(&catalog.Order{
		ID:           500,
		BillingEmail: "guest@example.com",
		Lines:        []catalog.OrderLine{{ProductID: 1, Quantity: 1, LineTotal: "5.00"}},
	})

	require.NoError(t, engine.RunPush(ctx))

	jobs := store.Snapshot()
	require.Len(t, jobs, 3)
	assert.Equal(t, queue.ActionDelete, jobs[0].Action)
	assert.Equal(t, queue.ModelGuestUsers, jobs[1].Model)
	assert.Equal(t, queue.ModelOrders, jobs[2].Model)
	assert.Equal(t, queue.ActionCreate, jobs[2].Action)
}

func TestRunPushCancelledOrderDeleteOnly(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{manifest: &remote.SyncManifest{
		Orders: &remote.KindDiff{IDs: []int64{500}},
	}}
	engine, store, cat := testEngine(api, Config{})

	cat.PutOrder(&catalog.Order{
		ID:         500,
		CustomerID: 7,
		Status:     catalog.OrderStatusCancelled,
		Lines:      []catalog.OrderLine{{ProductID: 1, Quantity: 1, LineTotal: "5.00"}},
	})

	require.NoError(t, engine.RunPush(ctx))

	jobs := store.Snapshot()
	require.Len(t, jobs, 1)
	assert.Equal(t, queue.ActionDelete, jobs[0].Action)
}

func TestRunPushEmptyManifest(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{manifest: &remote.SyncManifest{}}
	engine, store, _ := testEngine(api, Config{})

	require.NoError(t, engine.RunPush(ctx))
	assert.Empty(t, store.Snapshot())
}
