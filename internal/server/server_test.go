package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventory "github.com/matt653/high-life-auto-sub000"
	"github.com/matt653/high-life-auto-sub000/cmd/application"
	"github.com/matt653/high-life-auto-sub000/internal/cache"
	"github.com/matt653/high-life-auto-sub000/internal/server/handlers"
	"github.com/matt653/high-life-auto-sub000/internal/server/response"
	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/feed"
	"github.com/matt653/high-life-auto-sub000/pkg/loader"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

const lot = "Vehicle Vin,Vehicle Make,Vehicle Model,Vehicle Year,Retail\n" +
	"1G1JC12345,Chevrolet,Malibu,2012,\"5,900\"\n" +
	"2HGFA16500,Honda,Civic,2016,\"7,250\"\n"

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *response.Error `json:"error"`
}

type testServer struct {
	*httptest.Server
	srv    *Server
	client inventory.Client
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()

	store := enhancer.NewMemory(
		&vehicles.Enhancement{
			Identity:    vehicles.VINIdentity("1G1JC12345"),
			Description: "One owner, garage kept.",
		},
		&vehicles.Enhancement{
			Identity:    vehicles.VINIdentity("ZZZ9999999"),
			Description: "Sold last month.",
		},
	)
	c, err := inventory.New(
		inventory.WithFeeds(inventory.Feed{Name: "main", Fetcher: feed.StaticFetcher(lot)}),
		inventory.WithEnhancements(store),
		inventory.WithNavState(cache.NewNav(0)),
		inventory.WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)

	app := &application.Mock{
		ClientFunc: func() (inventory.Client, error) { return c, nil },
	}
	srv, err := New(app, cfg)
	require.NoError(t, err)
	srv.Start()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return &testServer{Server: ts, srv: srv, client: c}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) (int, envelope) {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	code, _ := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := ts.do(t, http.MethodGet, "/api/v1/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	require.NotNil(t, env.Error)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/ingest", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/ready", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestIngestAndList(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	code, env := ts.do(t, http.MethodPost, "/api/v1/ingest", nil)
	require.Equal(t, http.StatusOK, code)
	var result inventory.IngestResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 2, result.Merge.Merged)
	assert.Equal(t, 1, result.Merge.Enhanced)
	assert.Equal(t, []string{"ZZZ9999999"}, result.Orphaned)

	code, env = ts.do(t, http.MethodGet, "/api/v1/vehicles", nil)
	require.Equal(t, http.StatusOK, code)
	var list handlers.VehicleList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 2, list.Total)

	code, env = ts.do(t, http.MethodGet, "/api/v1/vehicles?make=honda", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Vehicles, 1)
	assert.Equal(t, "Civic", list.Vehicles[0].Model)

	code, env = ts.do(t, http.MethodGet, "/api/v1/vehicles?sort=color", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
}

func TestGetVehicle(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	code, env := ts.do(t, http.MethodGet, "/api/v1/vehicles/1G1JC12345", nil)
	require.Equal(t, http.StatusOK, code)
	var res loader.Resolution
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, loader.StateHaveEnhanced, res.State)
	require.NotNil(t, res.View)
	assert.Equal(t, "One owner, garage kept.", res.View.Description)
	assert.Equal(t, 5900.0, res.View.Price)

	code, env = ts.do(t, http.MethodGet, "/api/v1/vehicles/NOPE000000", nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestWatchVehicleStreamsStates(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	resp, err := ts.Client().Get(ts.URL + "/api/v1/vehicles/1G1JC12345/watch")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	stream := string(body)
	assert.Contains(t, stream, "event: HAVE_BASE")
	assert.Contains(t, stream, "event: HAVE_ENHANCED")
	assert.Less(t, strings.Index(stream, "HAVE_BASE"), strings.Index(stream, "event: HAVE_ENHANCED"))
}

func TestEnhancementRoundTrip(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	code, _ := ts.do(t, http.MethodPost, "/api/v1/ingest", nil)
	require.Equal(t, http.StatusOK, code)

	// Warm the list cache so the write must invalidate it.
	code, _ = ts.do(t, http.MethodGet, "/api/v1/vehicles?enhanced=true", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/vehicles/2HGFA16500/enhancement", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env := ts.do(t, http.MethodPut, "/api/v1/vehicles/2HGFA16500/enhancement", map[string]any{
		"description": "Fresh tires.",
		"overrides":   map[string]any{"price": 1},
	})
	require.Equal(t, http.StatusOK, code, "error: %+v", env.Error)

	code, env = ts.do(t, http.MethodGet, "/api/v1/vehicles/2HGFA16500/enhancement", nil)
	require.Equal(t, http.StatusOK, code)
	var e vehicles.Enhancement
	require.NoError(t, json.Unmarshal(env.Data, &e))
	assert.Equal(t, "Fresh tires.", e.Description)

	code, env = ts.do(t, http.MethodGet, "/api/v1/vehicles?enhanced=true", nil)
	require.Equal(t, http.StatusOK, code)
	var list handlers.VehicleList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 2, list.Total)

	view, ok := ts.client.Lookup("2HGFA16500")
	require.True(t, ok)
	assert.Equal(t, "Fresh tires.", view.Description)
	assert.Equal(t, 7250.0, view.Price, "price stays with the feed")
}

func TestPutEnhancementRejections(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"synthetic identity", "/api/v1/vehicles/1700000000-3/enhancement", map[string]any{"description": "x"}, http.StatusUnprocessableEntity},
		{"mismatched identity", "/api/v1/vehicles/2HGFA16500/enhancement", map[string]any{"identity": map[string]any{"key": "OTHER00000", "kind": "vin"}}, http.StatusBadRequest},
		{"unknown field", "/api/v1/vehicles/2HGFA16500/enhancement", map[string]any{"colour": "red"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := ts.do(t, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.want, code)
			assert.NotNil(t, env.Error)
		})
	}
}

func TestOrphans(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	code, _ := ts.do(t, http.MethodPost, "/api/v1/ingest", nil)
	require.Equal(t, http.StatusOK, code)

	code, env := ts.do(t, http.MethodGet, "/api/v1/enhancements/orphans", nil)
	require.Equal(t, http.StatusOK, code)
	var got struct {
		Orphans []string `json:"orphans"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, []string{"ZZZ9999999"}, got.Orphans)
	assert.Equal(t, 1, got.Count)
}

func TestAuthGuardsWrites(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthEnabled = true
	cfg.APIKey = "lot-key"
	ts := newTestServer(t, cfg)

	code, _ := ts.do(t, http.MethodPost, "/api/v1/ingest", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/ingest", nil, "X-API-Key", "lot-key")
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/vehicles", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestIngestRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IngestRateLimit = 1
	ts := newTestServer(t, cfg)

	code, _ := ts.do(t, http.MethodPost, "/api/v1/ingest", nil)
	assert.Equal(t, http.StatusOK, code)
	code, env := ts.do(t, http.MethodPost, "/api/v1/ingest", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)
}

func TestStatsCountsEvents(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())
	code, _ := ts.do(t, http.MethodPost, "/api/v1/ingest", nil)
	require.Equal(t, http.StatusOK, code)

	// ingest.started, two vehicle.added and ingest.completed
	assert.Eventually(t, func() bool {
		return ts.srv.Broker().EventsPublished() >= 4
	}, time.Second, 10*time.Millisecond)

	code, env := ts.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, code)
	var stats struct {
		Inventory inventory.Stats `json:"inventory"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 2, stats.Inventory.Vehicles)
	assert.Equal(t, 1, stats.Inventory.Enhanced)
	assert.Equal(t, 1, stats.Inventory.Ingests)
}

func TestMethodNotRouted(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/vehicles", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
