package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-catalog/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// serialLoop stands in for the session event loop.
type serialLoop struct {
	mu sync.Mutex
}

func (l *serialLoop) post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

type gatedProducts struct {
	mu    sync.Mutex
	gates map[domain.SortToken]chan struct{}
	errs  map[domain.SortToken]error
	calls int
}

func newGatedProducts() *gatedProducts {
	return &gatedProducts{
		gates: make(map[domain.SortToken]chan struct{}),
		errs:  make(map[domain.SortToken]error),
	}
}

func (g *gatedProducts) gate(tok domain.SortToken) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[tok]
	if !ok {
		ch = make(chan struct{})
		g.gates[tok] = ch
	}
	return ch
}

func (g *gatedProducts) fail(tok domain.SortToken, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[tok] = err
}

func (g *gatedProducts) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *gatedProducts) FetchProducts(ctx context.Context, f domain.FilterSet) (domain.ProductList, error) {
	ch := g.gate(f.Sort())

	g.mu.Lock()
	g.calls++
	err := g.errs[f.Sort()]
	g.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
		return domain.ProductList{}, ctx.Err()
	}
	if err != nil {
		return domain.ProductList{}, err
	}
	return domain.ProductList{
		Items: []domain.Product{{ID: 1, Names: domain.LocalizedNames{"en": string(f.Sort())}}},
		Total: 1,
	}, nil
}

type countingFacets struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingFacets) FetchFacets(ctx context.Context) (domain.FacetCatalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return domain.FacetCatalog{}, c.err
	}
	return domain.FacetCatalog{Brands: []domain.Brand{{ID: 1, Names: domain.LocalizedNames{"en": "Acme"}}}}, nil
}

func sorted(tok domain.SortToken) domain.FilterSet {
	f := domain.NewFilterSet()
	f.SortBy, f.SortOrder = tok.Split()
	return f
}

func setup(t *testing.T) (*Orchestrator, *serialLoop, *gatedProducts, *countingFacets) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	loop := &serialLoop{}
	products := newGatedProducts()
	facets := &countingFacets{}
	return New(ctx, products, facets, loop.post, zap.NewNop()), loop, products, facets
}

func stateOf(loop *serialLoop, o *Orchestrator) State {
	var st State
	loop.post(func() { st = o.State() })
	return st
}

func statsOf(loop *serialLoop, o *Orchestrator) Stats {
	var st Stats
	loop.post(func() { st = o.Stats() })
	return st
}

func TestTrigger_LastCommittedWins(t *testing.T) {
	o, loop, products, _ := setup(t)

	loop.post(func() {
		o.Trigger(sorted("price-asc"))
		o.Trigger(sorted("price-desc"))
	})
	assert.True(t, stateOf(loop, o).Loading)

	close(products.gate("price-desc"))
	require.Eventually(t, func() bool {
		st := stateOf(loop, o)
		return !st.Loading && st.Result != nil
	}, time.Second, 5*time.Millisecond)

	close(products.gate("price-asc"))
	require.Eventually(t, func() bool {
		return statsOf(loop, o).Discarded == 1
	}, time.Second, 5*time.Millisecond)

	st := stateOf(loop, o)
	require.NotNil(t, st.Result)
	assert.Equal(t, domain.SortToken("price-desc"), st.Result.Filter.Sort())
	assert.Equal(t, "price-desc", st.Result.Items[0].Names["en"])
	assert.False(t, st.Loading)
	assert.Equal(t, uint64(2), st.Generation)
}

func TestTrigger_EqualSetIsIgnored(t *testing.T) {
	o, loop, products, _ := setup(t)
	close(products.gate(domain.TokenRelevance))

	loop.post(func() {
		o.Trigger(domain.NewFilterSet())
		o.Trigger(domain.FilterSet{Page: 1, Limit: 12})
	})

	require.Eventually(t, func() bool { return stateOf(loop, o).Result != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, statsOf(loop, o).Issued)
	assert.Equal(t, 1, products.callCount())
}

func TestFailure_KeepsLastResult(t *testing.T) {
	o, loop, products, _ := setup(t)
	close(products.gate("rating-desc"))
	close(products.gate("newest-desc"))
	products.fail("newest-desc", errors.New("gateway timeout"))

	loop.post(func() { o.Trigger(sorted("rating-desc")) })
	require.Eventually(t, func() bool { return stateOf(loop, o).Result != nil }, time.Second, 5*time.Millisecond)

	loop.post(func() { o.Trigger(sorted("newest-desc")) })
	require.Eventually(t, func() bool { return stateOf(loop, o).Err != nil }, time.Second, 5*time.Millisecond)

	st := stateOf(loop, o)
	assert.False(t, st.Loading)
	assert.EqualError(t, st.Err, "gateway timeout")
	require.NotNil(t, st.Result)
	assert.Equal(t, domain.SortToken("rating-desc"), st.Result.Filter.Sort())

	// Re-committing the failed set is a user-initiated retry.
	products.fail("newest-desc", nil)
	loop.post(func() { o.Trigger(sorted("newest-desc")) })
	require.Eventually(t, func() bool {
		st := stateOf(loop, o)
		return st.Err == nil && !st.Loading && st.Result.Filter.Sort() == "newest-desc"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, statsOf(loop, o).Issued)
	assert.Equal(t, 1, statsOf(loop, o).Failed)
}

func TestRetry(t *testing.T) {
	o, loop, products, _ := setup(t)
	close(products.gate(domain.TokenRelevance))

	loop.post(func() { o.Retry() })
	assert.Zero(t, statsOf(loop, o).Issued)

	loop.post(func() { o.Trigger(domain.NewFilterSet()) })
	require.Eventually(t, func() bool { return stateOf(loop, o).Result != nil }, time.Second, 5*time.Millisecond)

	loop.post(func() { o.Retry() })
	require.Eventually(t, func() bool { return products.callCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, statsOf(loop, o).Issued)
}

func TestLoadFacets_OncePerMount(t *testing.T) {
	o, loop, _, facets := setup(t)
	updates := 0
	o.OnUpdate(func() { updates++ })

	loop.post(func() {
		o.LoadFacets()
		o.LoadFacets()
	})
	require.Eventually(t, func() bool { return stateOf(loop, o).FacetsLoaded }, time.Second, 5*time.Millisecond)

	loop.post(func() { o.LoadFacets() })

	st := stateOf(loop, o)
	assert.Len(t, st.Facets.Brands, 1)
	assert.False(t, st.FacetsLoading)
	facets.mu.Lock()
	assert.Equal(t, 1, facets.calls)
	facets.mu.Unlock()
	loop.post(func() { assert.Equal(t, 1, updates) })
}

func TestLoadFacets_FailureIsRetried(t *testing.T) {
	o, loop, _, facets := setup(t)
	facets.err = errors.New("catalog down")

	loop.post(func() { o.LoadFacets() })
	require.Eventually(t, func() bool { return stateOf(loop, o).FacetsErr != nil }, time.Second, 5*time.Millisecond)

	facets.mu.Lock()
	facets.err = nil
	facets.mu.Unlock()

	loop.post(func() { o.Retry() })
	require.Eventually(t, func() bool { return stateOf(loop, o).FacetsLoaded }, time.Second, 5*time.Millisecond)
	assert.Nil(t, stateOf(loop, o).FacetsErr)
}
