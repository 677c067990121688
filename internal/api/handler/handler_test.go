package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewise/recsync/internal/api/dto"
	"github.com/storewise/recsync/internal/api/handler"
	"github.com/storewise/recsync/internal/api/router"
	"github.com/storewise/recsync/internal/catalog"
	"github.com/storewise/recsync/internal/items"
	"github.com/storewise/recsync/internal/queue"
	"github.com/storewise/recsync/internal/remote"
	"github.com/storewise/recsync/internal/resync"
	"github.com/storewise/recsync/internal/worker"
)

// nopAPI satisfies every remote call without side effects.
type nopAPI struct{}

var _ remote.API = nopAPI{}

func (nopAPI) Create(context.Context, string, any) error            { return nil }
func (nopAPI) Update(context.Context, string, []string, any) error  { return nil }
func (nopAPI) Delete(context.Context, string, []string) error       { return nil }
func (nopAPI) DeleteAll(context.Context, string) error              { return nil }
func (nopAPI) BatchCreate(context.Context, string, []any) error     { return nil }
func (nopAPI) Cancel(context.Context, string, string) error         { return nil }
func (nopAPI) Overview(context.Context, string) ([]int64, error)    { return nil, nil }
func (nopAPI) Sync(context.Context) (*remote.SyncManifest, error) {
	return &remote.SyncManifest{}, nil
}

func int64Ptr(v int64) *int64 { return &v }

func testRouter(t *testing.T) (*gin.Engine, *queue.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := queue.NewMemoryStore()
	cat := catalog.NewMemoryStore()
	builder := items.NewBuilder(cat, items.BuilderConfig{Currency: "USD"})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps := &handler.Dependencies{
		Logger: logger,
		Queue:  store,
		Worker: worker.New(store, cat, builder, nopAPI{}, logger, worker.Config{}),
		Resync: resync.New(store, cat, builder, nopAPI{}, logger, resync.Config{}),
	}

	return router.SetupRouter(deps), store
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestListJobs(t *testing.T) {
	r, store := testRouter(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, queue.ModelProducts, queue.ActionCreate, int64Ptr(1), &queue.ProductCreatePayload{
		Item: &items.ProductItem{Name: "Lamp"},
	})
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, queue.ModelUsers, queue.ActionDelete, int64Ptr(2), &queue.UserDeletePayload{UserID: 2})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 2)
	// Newest first.
	assert.Equal(t, "users", resp.Jobs[0].Model)
	assert.Equal(t, "products", resp.Jobs[1].Model)
	assert.Equal(t, "none", resp.Jobs[0].Status)
	assert.Empty(t, resp.NextCursor)
}

func TestListJobsModelFilter(t *testing.T) {
	r, store := testRouter(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, queue.ModelProducts, queue.ActionCreate, int64Ptr(1), &queue.ProductCreatePayload{Item: &items.ProductItem{}})
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, queue.ModelUsers, queue.ActionDelete, int64Ptr(2), &queue.UserDeletePayload{UserID: 2})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?model=users", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "users", resp.Jobs[0].Model)
}

func TestListJobsPagination(t *testing.T) {
	r, store := testRouter(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		_, err := store.Enqueue(ctx, queue.ModelOrders, queue.ActionDelete, int64Ptr(i), &queue.OrderDeletePayload{OrderID: i})
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?page_size=2", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var first dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.Len(t, first.Jobs, 2)
	require.NotEmpty(t, first.NextCursor)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs?page_size=2&cursor="+first.NextCursor, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var second dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.Len(t, second.Jobs, 2)
	assert.Less(t, second.Jobs[0].ID, first.Jobs[1].ID)
}

func TestListJobsBadFilters(t *testing.T) {
	r, _ := testRouter(t)

	for _, url := range []string{
		"/api/v1/jobs?model=bogus",
		"/api/v1/jobs?action=bogus",
		"/api/v1/jobs?status=bogus",
		"/api/v1/jobs?cursor=not-a-cursor",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "url %s", url)
	}
}

func TestSyncStatus(t *testing.T) {
	r, store := testRouter(t)
	ctx := context.Background()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.SyncStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Seeded)

	_, err := store.Enqueue(ctx, queue.ModelProducts, queue.ActionInit, nil, &queue.InitPayload{IDs: []int64{1, 2}})
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Seeded)
	assert.Equal(t, 2, resp.Progress["products"].Total)
}

func TestRunTickEndpoint(t *testing.T) {
	r, store := testRouter(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, queue.ModelUsers, queue.ActionDelete, int64Ptr(7), &queue.UserDeletePayload{UserID: 7})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	jobs := store.Snapshot()
	assert.Equal(t, queue.StatusSuccess, jobs[0].Status)
}

func TestRunResyncEndpoint(t *testing.T) {
	r, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resync/run", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunBootstrapEndpoint(t *testing.T) {
	r, store := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resync/bootstrap", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// Empty catalog seeds nothing but the endpoint still succeeds.
	assert.Empty(t, store.Snapshot())
}
