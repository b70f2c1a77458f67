package router

// Page is an ordered stack of units drawn together. The front unit is the
// most recently added one.
type Page struct {
	id     int
	pid    int
	units  []Unit
	nextID int
}

// NewPage returns a page holding units; the last argument ends up in front.
func NewPage(units ...Unit) *Page {
	p := &Page{nextID: 1}
	for _, u := range units {
		p.Add(u)
	}
	return p
}

// ID returns the id the router assigned, 0 before insertion.
func (p *Page) ID() int { return p.id }

// ParentID returns the id of the page that was active when this one was added.
func (p *Page) ParentID() int { return p.pid }

func (p *Page) setID(id int) {
	p.id = id
	for _, u := range p.units {
		u.SetParentID(id)
	}
}

// Len returns the number of units.
func (p *Page) Len() int { return len(p.units) }

// Units returns the units front to back.
func (p *Page) Units() []Unit {
	out := make([]Unit, len(p.units))
	copy(out, p.units)
	return out
}

// Add puts u in front. u gets a fresh id that is never reused on this page.
func (p *Page) Add(u Unit) {
	if p.nextID == 0 {
		p.nextID = 1
	}
	u.SetParentID(p.id)
	u.SetID(p.nextID)
	p.nextID++
	p.units = append([]Unit{u}, p.units...)
}

// Remove removes the unit with id, or the front unit when hasID is false.
func (p *Page) Remove(id int, hasID bool) (Unit, bool) {
	if len(p.units) == 0 {
		return nil, false
	}
	idx := 0
	if hasID {
		idx = -1
		for i, u := range p.units {
			if u.ID() == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, false
		}
	}
	u := p.units[idx]
	p.units = append(p.units[:idx], p.units[idx+1:]...)
	return u, true
}

// Draw draws units front to back. The first unit whose content returns an
// action ends the pass; units behind it are not drawn this tick.
func (p *Page) Draw(f *Frame) Action {
	for _, u := range p.units {
		u.TitleBar(f)
		u.StatusBar(f)
		if a := u.Content(f); a != nil {
			return a
		}
	}
	return nil
}
