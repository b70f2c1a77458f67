// Package router implements page navigation driven by the actions units
// return from their content draw.
package router

import (
	"io"
	"log/slog"
)

// Router is a stack of pages; the front page is the active one. Page ids
// come from a counter and are never reused or renumbered, and lookups go
// through an id index rather than positions.
//
// A Router is owned by the UI goroutine and is not safe for concurrent use.
type Router struct {
	order     []int // page ids, front first
	pages     map[int]*Page
	nextID    int
	uiEnabled bool
	displaced *Page
	logger    *slog.Logger
}

// New returns an empty router.
func New(logger *slog.Logger) *Router {
	return &Router{
		pages:     make(map[int]*Page),
		nextID:    1,
		uiEnabled: true,
		logger:    logger.With("component", "router"),
	}
}

// Len returns the number of pages.
func (r *Router) Len() int { return len(r.order) }

// IDs returns page ids front to back.
func (r *Router) IDs() []int {
	out := make([]int, len(r.order))
	copy(out, r.order)
	return out
}

// Front returns the active page.
func (r *Router) Front() (*Page, bool) {
	if len(r.order) == 0 {
		return nil, false
	}
	return r.pages[r.order[0]], true
}

// Get returns the page with id.
func (r *Router) Get(id int) (*Page, bool) {
	p, ok := r.pages[id]
	return p, ok
}

// UIEnabled reports whether the UI behind an open overlay stays interactive.
// The router only records it; enforcing it is up to the host.
func (r *Router) UIEnabled() bool { return r.uiEnabled }

// Add inserts page in front and returns its id. The previous front page
// becomes its parent.
func (r *Router) Add(page *Page) int {
	id := r.nextID
	r.nextID++

	page.pid = 0
	if len(r.order) > 0 {
		page.pid = r.order[0]
	}
	page.setID(id)

	r.pages[id] = page
	r.order = append([]int{id}, r.order...)
	r.logger.Debug("page added", "id", id, "parent", page.pid, "pages", len(r.order))
	return id
}

// Remove removes the page with id, or the front page when hasID is false.
// An unknown id removes nothing.
func (r *Router) Remove(id int, hasID bool) (*Page, bool) {
	if len(r.order) == 0 {
		return nil, false
	}
	if !hasID {
		id = r.order[0]
	}
	page, ok := r.pages[id]
	if !ok {
		return nil, false
	}
	delete(r.pages, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Debug("page removed", "id", id, "pages", len(r.order))
	return page, true
}

// Modify swaps the page with id for page. The new page takes over the id,
// parent link and stack position; the displaced page is returned as it was.
func (r *Router) Modify(id int, page *Page) (*Page, bool) {
	old, ok := r.pages[id]
	if !ok {
		return nil, false
	}
	page.pid = old.pid
	page.setID(id)
	r.pages[id] = page
	r.logger.Debug("page modified", "id", id)
	return old, true
}

// Dispatch draws the active page into f and applies the action it returns.
// The applied action is returned; nil when nothing changed.
func (r *Router) Dispatch(f *Frame) Action {
	front, ok := r.Front()
	if !ok {
		return nil
	}
	a := front.Draw(f)
	if a != nil {
		r.apply(a)
	}
	return a
}

func (r *Router) apply(a Action) {
	switch a := a.(type) {
	case AddPage:
		if a.Page == nil {
			r.logger.Warn("add page without a page")
			return
		}
		r.Add(a.Page)
	case RemovePage:
		page, ok := r.Remove(a.ID, a.HasID)
		if !ok {
			r.logger.Debug("remove page: nothing removed", "id", a.ID, "has_id", a.HasID)
			return
		}
		r.release(page)
	case ModifyPage:
		if a.Page == nil {
			r.logger.Warn("modify page without a page", "id", a.ID)
			return
		}
		old, ok := r.Modify(a.ID, a.Page)
		if !ok {
			r.logger.Debug("modify page: nothing modified", "id", a.ID)
			return
		}
		if r.displaced != nil && !r.live(r.displaced) {
			r.release(r.displaced)
		}
		r.displaced = old
	case OpenWindow:
		r.uiEnabled = a.UIEnabled
	case CloseWindow:
		r.uiEnabled = true
	}
}

// Displaced returns the page most recently swapped out by a ModifyPage
// action, so it can be restored with Modify. Only one is kept: the next
// ModifyPage action closes the units of the previous one.
func (r *Router) Displaced() (*Page, bool) {
	return r.displaced, r.displaced != nil
}

// live reports whether p is currently in the router, e.g. a displaced page
// that was restored.
func (r *Router) live(p *Page) bool {
	cur, ok := r.pages[p.id]
	return ok && cur == p
}

// release closes the units of a page removed by a RemovePage action. Pages
// returned from Remove or Modify are the caller's to close.
func (r *Router) release(p *Page) {
	for _, u := range p.units {
		c, ok := u.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			r.logger.Warn("close unit", "page", p.id, "unit", u.ID(), "err", err)
		}
	}
}
