// Package fetch issues product list and facet requests for committed filter
// sets and keeps only the answer to the latest one.
package fetch

import (
	"context"
	"time"

	"storefront-catalog/internal/domain"

	"go.uber.org/zap"
)

// ProductFetcher runs a paginated product query.
type ProductFetcher interface {
	FetchProducts(ctx context.Context, f domain.FilterSet) (domain.ProductList, error)
}

// FacetFetcher loads the category tree and brand list.
type FacetFetcher interface {
	FetchFacets(ctx context.Context) (domain.FacetCatalog, error)
}

// Poster schedules fn on the owner's event loop. Completions of requests
// are delivered through it, never applied from the requesting goroutine.
type Poster func(fn func())

// State is a snapshot of the orchestrator.
type State struct {
	Result     *domain.ResultPage
	Loading    bool
	Err        error
	Generation uint64

	Facets        domain.FacetCatalog
	FacetsLoading bool
	FacetsLoaded  bool
	FacetsErr     error
}

// Stats counts requests for diagnostics and tests.
type Stats struct {
	Issued    int
	Discarded int
	Failed    int
}

// Orchestrator turns committed FilterSets into product requests. Superseded
// requests are not aborted; their answers are dropped on arrival by comparing
// generations. All methods must be called from the owner's event loop.
type Orchestrator struct {
	ctx      context.Context
	products ProductFetcher
	facets   FacetFetcher
	post     Poster
	logger   *zap.Logger

	gen       uint64
	requested *domain.FilterSet
	result    *domain.ResultPage
	loading   bool
	err       error

	facetsRequested bool
	facetsLoading   bool
	catalog         domain.FacetCatalog
	facetsLoaded    bool
	facetsErr       error

	stats    Stats
	onUpdate []func()
}

// New creates an orchestrator. ctx bounds every request it issues.
func New(ctx context.Context, products ProductFetcher, facets FacetFetcher, post Poster, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		ctx:      ctx,
		products: products,
		facets:   facets,
		post:     post,
		logger:   logger,
	}
}

// OnUpdate registers fn to run on the event loop after a request resolves.
func (o *Orchestrator) OnUpdate(fn func()) {
	o.onUpdate = append(o.onUpdate, fn)
}

// Trigger requests the product list for f unless f equals the set already
// requested. A failed request does not count, so re-committing the same set
// retries it.
func (o *Orchestrator) Trigger(f domain.FilterSet) {
	if o.requested != nil && o.requested.Equal(f) && o.err == nil {
		return
	}

	o.gen++
	gen := o.gen
	f = f.Clone()
	o.requested = &f
	o.loading = true
	o.err = nil
	o.stats.Issued++

	o.logger.Debug("Fetching products",
		zap.Uint64("generation", gen),
		zap.Any("filter", f),
	)

	go func() {
		start := time.Now()
		list, err := o.products.FetchProducts(o.ctx, f)
		elapsed := time.Since(start)
		o.post(func() { o.completeProducts(gen, f, list, err, elapsed) })
	}()
}

// Retry re-issues the last product request and, if it failed, the facet
// request.
func (o *Orchestrator) Retry() {
	if o.facetsErr != nil {
		o.facetsRequested = false
		o.LoadFacets()
	}
	if o.requested == nil {
		return
	}
	f := *o.requested
	o.requested = nil
	o.Trigger(f)
}

func (o *Orchestrator) completeProducts(gen uint64, f domain.FilterSet, list domain.ProductList, err error, elapsed time.Duration) {
	if gen != o.gen {
		o.stats.Discarded++
		o.logger.Debug("Discarding stale product list",
			zap.Uint64("generation", gen),
			zap.Uint64("current", o.gen),
		)
		return
	}

	o.loading = false
	if err != nil {
		o.err = err
		o.stats.Failed++
		o.logger.Warn("Product fetch failed",
			zap.Uint64("generation", gen),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		o.notify()
		return
	}

	o.result = &domain.ResultPage{
		Filter: f,
		Items:  list.Items,
		Total:  list.Total,
	}
	o.logger.Debug("Product list loaded",
		zap.Uint64("generation", gen),
		zap.Int("count", len(list.Items)),
		zap.Int("total", list.Total),
		zap.Duration("duration", elapsed),
	)
	o.notify()
}

// LoadFacets requests the facet catalog once per orchestrator.
func (o *Orchestrator) LoadFacets() {
	if o.facetsRequested {
		return
	}
	o.facetsRequested = true
	o.facetsLoading = true
	o.facetsErr = nil

	go func() {
		catalog, err := o.facets.FetchFacets(o.ctx)
		o.post(func() { o.completeFacets(catalog, err) })
	}()
}

func (o *Orchestrator) completeFacets(catalog domain.FacetCatalog, err error) {
	o.facetsLoading = false
	if err != nil {
		o.facetsErr = err
		o.logger.Warn("Facet fetch failed", zap.Error(err))
		o.notify()
		return
	}
	o.catalog = catalog
	o.facetsLoaded = true
	o.notify()
}

// State returns a snapshot. The result page is shared, not copied; callers
// must treat it as read-only.
func (o *Orchestrator) State() State {
	return State{
		Result:        o.result,
		Loading:       o.loading,
		Err:           o.err,
		Generation:    o.gen,
		Facets:        o.catalog,
		FacetsLoading: o.facetsLoading,
		FacetsLoaded:  o.facetsLoaded,
		FacetsErr:     o.facetsErr,
	}
}

// Stats returns request counters.
func (o *Orchestrator) Stats() Stats {
	return o.stats
}

func (o *Orchestrator) notify() {
	for _, fn := range o.onUpdate {
		fn()
	}
}
