package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront-catalog/internal/catalogapi"
	"storefront-catalog/internal/domain"
	"storefront-catalog/internal/middleware"
	"storefront-catalog/internal/pills"
	"storefront-catalog/internal/session"
	"storefront-catalog/internal/urlcodec"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	mu          sync.Mutex
	productsErr error
	requests    []string
}

func (c *fakeCatalog) FetchProducts(ctx context.Context, f domain.FilterSet) (domain.ProductList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, urlcodec.EncodeRequest(f))
	if c.productsErr != nil {
		return domain.ProductList{}, c.productsErr
	}
	return domain.ProductList{
		Items: []domain.Product{{ID: 1, Names: domain.LocalizedNames{"en": "Rose toner"}, Price: 12}},
		Total: 1,
	}, nil
}

func (c *fakeCatalog) FetchFacets(ctx context.Context) (domain.FacetCatalog, error) {
	return domain.FacetCatalog{
		Categories: []domain.Category{{ID: 3, Names: domain.LocalizedNames{"en": "Skincare", "ru": "Уход"}}},
		Brands:     []domain.Brand{{ID: 5, Names: domain.LocalizedNames{"en": "Acme"}}},
	}, nil
}

func newRouter(t *testing.T, catalog *fakeCatalog) chi.Router {
	t.Helper()
	projector := pills.NewProjector("en", 0)
	registry := session.NewRegistry(session.Deps{
		Products:  catalog,
		Facets:    catalog,
		Projector: projector,
	}, session.Options{Locale: "en", AutoApplySort: true}, time.Minute, zap.NewNop())
	t.Cleanup(registry.Close)

	r := chi.NewRouter()
	catalogHandler := NewCatalogHandler(catalog, catalog, projector, zap.NewNop())
	catalogHandler.RegisterRoutes(r)
	catalogHandler.RegisterSourceRoutes(r)
	NewSessionHandler(registry, zap.NewNop()).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[middleware.ErrorResponse](t, w).Error.Code
}

func TestCatalogHandler_View(t *testing.T) {
	catalog := &fakeCatalog{}
	r := newRouter(t, catalog)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog?brandIds=5&search=toner&categoryIds=3,x", nil)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	view := decode[CatalogView](t, w)
	assert.Equal(t, "search=toner&categoryIds=3&brandIds=5", view.Query)
	assert.Equal(t, domain.TokenRelevance, view.Sort)
	assert.Equal(t, 1, view.Result.Total)
	require.Len(t, view.Pills, 3)
	assert.Equal(t, "Уход", view.Pills[1].Value)
	assert.Equal(t, []string{"page=1&limit=12&search=toner&categoryIds=3&brandIds=5"}, catalog.requests)
}

func TestCatalogHandler_ViewSortToken(t *testing.T) {
	r := newRouter(t, &fakeCatalog{})

	w := doRequest(t, r, http.MethodGet, "/api/catalog?sortBy=price&sortOrder=desc", nil)

	require.Equal(t, http.StatusOK, w.Code)
	view := decode[CatalogView](t, w)
	assert.Equal(t, domain.SortToken("price-desc"), view.Sort)
	assert.Equal(t, "sortBy=price&sortOrder=desc", view.Query)
}

func TestCatalogHandler_ViewBackendDown(t *testing.T) {
	catalog := &fakeCatalog{productsErr: fmt.Errorf("failed to fetch products: %w", catalogapi.ErrCatalogUnavailable)}
	r := newRouter(t, catalog)

	w := doRequest(t, r, http.MethodGet, "/api/catalog", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "catalog_unavailable", errorCode(t, w))
}

func TestCatalogHandler_SourceRoutes(t *testing.T) {
	catalog := &fakeCatalog{}
	r := newRouter(t, catalog)

	w := doRequest(t, r, http.MethodGet, "/api/products?page=2&limit=24&sortBy=price&sortOrder=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[domain.ProductList](t, w)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "page=2&limit=24&sortBy=price&sortOrder=desc", catalog.requests[0])

	w = doRequest(t, r, http.MethodGet, "/api/facets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	facets := decode[domain.FacetCatalog](t, w)
	assert.Len(t, facets.Brands, 1)
}

func createSession(t *testing.T, r http.Handler, query string) string {
	t.Helper()
	w := doRequest(t, r, http.MethodPost, "/api/sessions?"+query, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	snap := decode[session.Snapshot](t, w)
	assert.Equal(t, "/api/sessions/"+snap.ID, w.Header().Get("Location"))
	return snap.ID
}

func settled(t *testing.T, r http.Handler, id string) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	require.Eventually(t, func() bool {
		w := doRequest(t, r, http.MethodGet, "/api/sessions/"+id, nil)
		if w.Code != http.StatusOK {
			return false
		}
		snap = decode[session.Snapshot](t, w)
		return !snap.Loading && snap.FacetsLoaded
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestSessionHandler_Lifecycle(t *testing.T) {
	r := newRouter(t, &fakeCatalog{})
	id := createSession(t, r, "search=toner")
	base := "/api/sessions/" + id

	snap := settled(t, r, id)
	assert.Equal(t, "search=toner", snap.Query)
	require.Len(t, snap.Pills, 1)

	w := doRequest(t, r, http.MethodPost, base+"/drawer/open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[session.Snapshot](t, w).Draft.DrawerOpen)

	w = doRequest(t, r, http.MethodPut, base+"/draft", DraftRequest{
		Search:      "toner",
		CategoryIDs: []int{3},
		MinPrice:    domain.Float(10),
		MaxPrice:    domain.Float(50),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, r, http.MethodPost, base+"/apply", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[session.Snapshot](t, w)
	assert.Equal(t, "search=toner&categoryIds=3&minPrice=10&maxPrice=50", snap.Query)
	assert.False(t, snap.Draft.DrawerOpen)

	w = doRequest(t, r, http.MethodPost, base+"/page", PageRequest{Page: 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[session.Snapshot](t, w).Committed.Page)

	w = doRequest(t, r, http.MethodPost, base+"/sort", SortRequest{Sort: "price-desc"})
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[session.Snapshot](t, w)
	assert.Equal(t, 1, snap.Committed.Page)
	assert.Equal(t, domain.SortPrice, snap.Committed.SortBy)

	w = doRequest(t, r, http.MethodDelete, base+"/pills/price", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[session.Snapshot](t, w)
	assert.Nil(t, snap.Committed.MinPrice)
	assert.Equal(t, "search=toner&categoryIds=3&sortBy=price&sortOrder=desc", snap.Query)

	w = doRequest(t, r, http.MethodPost, base+"/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode[session.Snapshot](t, w).Committed.MinPrice)

	w = doRequest(t, r, http.MethodPost, base+"/forward", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodPost, base+"/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decode[session.Snapshot](t, w).Query)

	w = doRequest(t, r, http.MethodPost, base+"/navigate", NavigateRequest{Query: "brandIds=5"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{5}, decode[session.Snapshot](t, w).Committed.BrandIDs)

	w = doRequest(t, r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, r, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session_not_found", errorCode(t, w))
}

func TestSessionHandler_Rejections(t *testing.T) {
	r := newRouter(t, &fakeCatalog{})
	id := createSession(t, r, "")
	base := "/api/sessions/" + id
	settled(t, r, id)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"page below one", http.MethodPost, "/page", PageRequest{Page: 0}, http.StatusBadRequest, "validation_failed"},
		{"unknown sort", http.MethodPost, "/sort", SortRequest{Sort: "colour-asc"}, http.StatusBadRequest, "validation_failed"},
		{"negative price", http.MethodPut, "/draft", DraftRequest{MinPrice: domain.Float(-1)}, http.StatusBadRequest, "validation_failed"},
		{"bad id", http.MethodPut, "/draft", DraftRequest{BrandIDs: []int{0}}, http.StatusBadRequest, "validation_failed"},
		{"unknown field", http.MethodPut, "/draft", map[string]any{"colour": "red"}, http.StatusBadRequest, "invalid_body"},
		{"unknown pill", http.MethodDelete, "/pills/colour", nil, http.StatusBadRequest, "unknown_dimension"},
		{"no history", http.MethodPost, "/back", nil, http.StatusConflict, "no_history"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, r, tt.method, base+tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestSessionHandler_UnknownSession(t *testing.T) {
	r := newRouter(t, &fakeCatalog{})

	for _, path := range []string{"/", "/apply", "/retry"} {
		method := http.MethodPost
		if path == "/" {
			method = http.MethodGet
		}
		w := doRequest(t, r, method, "/api/sessions/missing"+strings.TrimSuffix(path, "/"), nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}
