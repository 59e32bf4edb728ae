package catalog_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"MiniCatalog/internal/catalog"
	"MiniCatalog/pkg/kit"
	"MiniCatalog/pkg/messaging"
)

const testSecret = "test-secret-test-secret-test-secret"

type recordingPublisher struct {
	mu     sync.Mutex
	events []catalog.ProductEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev.(catalog.ProductEvent))
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Subject()
	}
	return out
}

func newCatalogTS(t *testing.T, deps catalog.HTTPDeps, pub messaging.Publisher) *httptest.Server {
	t.Helper()

	store, _ := catalog.Open(context.Background(), catalog.NewMemBackend())
	s := &catalog.Server{Store: store, Events: pub}

	deps.Log = zap.NewNop()
	deps.Service = "catalog"

	ts := httptest.NewServer(catalog.NewHandler(s, deps))
	t.Cleanup(ts.Close)
	return ts
}

func adminToken(t *testing.T, tm *kit.TokenMaker, role string) string {
	t.Helper()
	tok, err := tm.New("tester", role, time.Minute)
	require.NoError(t, err)
	return tok
}

func TestCatalogAPI_HappyPath(t *testing.T) {
	ctx := context.Background()
	tm := kit.NewTokenMaker(testSecret)
	pub := &recordingPublisher{}
	ts := newCatalogTS(t, catalog.HTTPDeps{JWT: tm}, pub)

	c := catalog.NewClient(ts.URL + "/")
	c.Token = adminToken(t, tm, catalog.RoleAdmin)

	p := iphone()
	p.Extra = map[string]any{"color": "black"}

	created, err := c.Add(ctx, p)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "black", created.Extra["color"])

	_, err = c.Add(ctx, p)
	require.ErrorIs(t, err, catalog.ErrDuplicateCode)

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.Update(ctx, created.ID, catalog.Fields{"title": "X", "price": 250}))

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", got.Title)
	assert.Equal(t, "250", got.Price.String())
	assert.Equal(t, "abc123", got.Code)
	assert.Equal(t, int64(25), got.Stock)

	require.NoError(t, c.Delete(ctx, created.ID))

	_, err = c.Get(ctx, created.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.ErrorIs(t, c.Update(ctx, created.ID, catalog.Fields{"title": "Y"}), catalog.ErrNotFound)
	require.ErrorIs(t, c.Delete(ctx, created.ID), catalog.ErrNotFound)

	assert.Equal(t, []string{"product.created", "product.updated", "product.deleted"}, pub.subjects())
	for _, ev := range pub.events {
		assert.Equal(t, "tester", ev.Actor, ev.Subject())
	}
}

func TestCatalogAPI_WriteAuth(t *testing.T) {
	ctx := context.Background()
	tm := kit.NewTokenMaker(testSecret)
	ts := newCatalogTS(t, catalog.HTTPDeps{JWT: tm}, nil)

	testCases := []struct {
		name  string
		token string
		want  int
	}{
		{name: "no token", token: "", want: http.StatusUnauthorized},
		{name: "garbage token", token: "not-a-jwt", want: http.StatusUnauthorized},
		{name: "wrong role", token: adminToken(t, tm, "viewer"), want: http.StatusForbidden},
		{name: "foreign secret", token: adminToken(t, kit.NewTokenMaker(strings.Repeat("x", 32)), catalog.RoleAdmin), want: http.StatusUnauthorized},
		{name: "admin", token: adminToken(t, tm, catalog.RoleAdmin), want: http.StatusCreated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.URL+"/products",
				strings.NewReader(`{"code":"`+tc.name+`"}`))
			require.NoError(t, err)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}

	resp, err := http.Get(ts.URL + "/products")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads stay public")
}

func TestCatalogAPI_BadRequests(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{}, nil)
	c := catalog.NewClient(ts.URL)

	created, err := c.Add(context.Background(), iphone())
	require.NoError(t, err)

	testCases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "malformed create", method: http.MethodPost, path: "/products", body: `{"code":`, want: http.StatusBadRequest},
		{name: "trailing data", method: http.MethodPost, path: "/products", body: `{"code":"z"} {}`, want: http.StatusBadRequest},
		{name: "unbounded price", method: http.MethodPost, path: "/products", body: `{"code":"big","price":1e50000000}`, want: http.StatusBadRequest},
		{name: "unbounded price patch", method: http.MethodPatch, path: "/products/" + created.ID, body: `{"price":"1e-900"}`, want: http.StatusBadRequest},
		{name: "null patch", method: http.MethodPatch, path: "/products/" + created.ID, body: `null`, want: http.StatusBadRequest},
		{name: "bad field type", method: http.MethodPatch, path: "/products/" + created.ID, body: `{"stock":"many"}`, want: http.StatusBadRequest},
		{name: "unknown id", method: http.MethodGet, path: "/products/nope", want: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, ts.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestCatalogAPI_WriteRateLimit(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{WriteLimitPerMin: 2}, nil)
	c := catalog.NewClient(ts.URL)
	ctx := context.Background()

	_, err := c.Add(ctx, catalog.Product{Code: "a"})
	require.NoError(t, err)
	_, err = c.Add(ctx, catalog.Product{Code: "b"})
	require.NoError(t, err)

	_, err = c.Add(ctx, catalog.Product{Code: "c"})
	require.ErrorIs(t, err, catalog.ErrBadStatus)

	_, err = c.List(ctx)
	require.NoError(t, err, "reads are not rate limited")
}

func TestCatalogAPI_Probes(t *testing.T) {
	ts := newCatalogTS(t, catalog.HTTPDeps{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"snapshot":"absent","loaded":0}`, string(body))
}

func TestCatalogAPI_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := newCatalogTS(t, catalog.HTTPDeps{
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   "scrape",
	}, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer scrape")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
