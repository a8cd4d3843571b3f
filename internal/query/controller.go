package query

import (
	"context"
	"errors"
	"sync"

	"todoctl/internal/service"
)

// ErrStale is returned by Refresh when a newer request or state change
// superseded this one. The response was discarded.
var ErrStale = errors.New("stale response discarded")

// Page is the result of a successful Refresh.
type Page struct {
	Items []service.Task

	// State is the query state the items belong to.
	State State

	// Gen is the generation of the request that produced the page. Pages
	// with a higher Gen are newer.
	Gen uint64
}

// IDs returns the identifiers of the items on the page.
func (p Page) IDs() []int64 {
	ids := make([]int64, len(p.Items))
	for i, item := range p.Items {
		ids[i] = item.ID
	}
	return ids
}

// Controller owns a query State and issues list requests for it.
// It is safe for concurrent use; the lock is never held across a request.
type Controller struct {
	lister service.Lister

	mu      sync.Mutex
	state   State
	gen     uint64 // generation of the latest issued request or state change
	loading bool
}

// NewController creates a controller starting at the given state.
func NewController(lister service.Lister, initial State) *Controller {
	return &Controller{
		lister: lister,
		state:  initial,
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading reports whether the latest request is still outstanding.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Update applies a transition. When the transition changes what would be
// fetched, any outstanding response becomes stale.
func (c *Controller) Update(fn func(State) State) Change {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := fn(c.state)
	change := Diff(c.state, next)
	c.state = next
	if change.Fetch {
		c.gen++
	}
	return change
}

// Refresh fetches the current page.
//
// If the store reports matches but the page is empty and not the first one
// (the tail of the last page was deleted), the page is decremented and the
// fetch repeated until a non-empty page or page 1 is reached.
//
// Responses that are not for the latest request are dropped and ErrStale is
// returned. On a store error the state is left unchanged, including a page
// already stepped back during convergence.
func (c *Controller) Refresh(ctx context.Context) (Page, error) {
	c.mu.Lock()
	startPage := c.state.Page
	c.mu.Unlock()

	for {
		c.mu.Lock()
		c.gen++
		gen := c.gen
		params := c.state.Params()
		c.loading = true
		c.mu.Unlock()

		res, err := c.lister.List(ctx, params)

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return Page{}, ErrStale
		}
		c.loading = false
		if err != nil {
			c.state.Page = startPage
			c.mu.Unlock()
			return Page{}, err
		}

		if len(res.Items) == 0 && res.Total > 0 && c.state.Page > 1 {
			c.state.Page--
			c.mu.Unlock()
			continue
		}

		c.state = c.state.WithTotal(res.Total)
		page := Page{Items: res.Items, State: c.state, Gen: gen}
		c.mu.Unlock()
		return page, nil
	}
}
