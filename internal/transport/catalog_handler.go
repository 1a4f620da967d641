package transport

import (
	"net/http"

	"storefront-catalog/internal/domain"
	"storefront-catalog/internal/fetch"
	"storefront-catalog/internal/logger"
	"storefront-catalog/internal/middleware"
	"storefront-catalog/internal/pills"
	"storefront-catalog/internal/urlcodec"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CatalogView is the one-shot rendering of a catalog URL.
type CatalogView struct {
	Query  string              `json:"query"`
	Sort   domain.SortToken    `json:"sort"`
	Filter domain.FilterSet    `json:"filter"`
	Pills  []domain.FilterPill `json:"pills"`
	Result domain.ResultPage   `json:"result"`
	Facets domain.FacetCatalog `json:"facets"`
}

// CatalogHandler serves stateless catalog reads.
type CatalogHandler struct {
	products  fetch.ProductFetcher
	facets    fetch.FacetFetcher
	projector *pills.Projector
	logger    *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(products fetch.ProductFetcher, facets fetch.FacetFetcher, projector *pills.Projector, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		products:  products,
		facets:    facets,
		projector: projector,
		logger:    logger,
	}
}

// RegisterRoutes registers the catalog view route
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/catalog", h.View)
}

// RegisterSourceRoutes exposes the product and facet fetchers in the same
// wire format the remote catalog client consumes.
func (h *CatalogHandler) RegisterSourceRoutes(r chi.Router) {
	r.Get("/api/products", h.Products)
	r.Get("/api/facets", h.Facets)
}

// View decodes the query string, fetches the matching page and the facets,
// and returns them with the pills of the filter.
func (h *CatalogHandler) View(w http.ResponseWriter, r *http.Request) {
	f := urlcodec.Decode(r.URL.RawQuery).Normalize()

	var (
		list    domain.ProductList
		catalog domain.FacetCatalog
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		list, err = h.products.FetchProducts(ctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		catalog, err = h.facets.FetchFacets(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.FromContext(r.Context(), h.logger).Warn("Catalog view failed", zap.Error(err))
		respondWithDomainError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CatalogView{
		Query:  urlcodec.Encode(f),
		Sort:   urlcodec.DecodeSort(r.URL.RawQuery),
		Filter: f,
		Pills:  h.projector.Project(f, catalog, r.Header.Get("Accept-Language")),
		Result: domain.ResultPage{Filter: f, Items: nonNil(list.Items), Total: list.Total},
		Facets: catalog,
	})
}

// Products answers a product list request.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	f := urlcodec.Decode(r.URL.RawQuery)

	list, err := h.products.FetchProducts(r.Context(), f)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Error("Failed to list products", zap.Error(err))
		respondWithDomainError(w, err)
		return
	}
	list.Items = nonNil(list.Items)
	middleware.RespondWithJSON(w, http.StatusOK, list)
}

// Facets answers a facet catalog request.
func (h *CatalogHandler) Facets(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.facets.FetchFacets(r.Context())
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Error("Failed to load facets", zap.Error(err))
		respondWithDomainError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, catalog)
}

func nonNil(items []domain.Product) []domain.Product {
	if items == nil {
		return []domain.Product{}
	}
	return items
}
