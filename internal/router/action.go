package router

// Action is a structural change a unit requests from its content draw.
// A nil Action means nothing happens this tick.
//
// The set of actions is closed: AddPage, RemovePage, ModifyPage, OpenWindow
// and CloseWindow.
type Action interface {
	action()
}

// AddPage pushes Page to the front of the router. It becomes active on the
// next tick.
type AddPage struct {
	Page *Page
}

// RemovePage removes the page with ID, or the front page when HasID is false.
type RemovePage struct {
	ID    int
	HasID bool
}

// ModifyPage replaces the page with ID by Page, keeping the id and position.
type ModifyPage struct {
	ID   int
	Page *Page
}

// OpenWindow signals that a transient overlay is shown. UIEnabled tells the
// host whether the rest of the UI stays interactive meanwhile.
type OpenWindow struct {
	UIEnabled bool
}

// CloseWindow signals that the overlay is gone.
type CloseWindow struct{}

func (AddPage) action()     {}
func (RemovePage) action()  {}
func (ModifyPage) action()  {}
func (OpenWindow) action()  {}
func (CloseWindow) action() {}

// RemoveFront returns a RemovePage for the front page.
func RemoveFront() RemovePage { return RemovePage{} }

// RemoveByID returns a RemovePage for page id.
func RemoveByID(id int) RemovePage { return RemovePage{ID: id, HasID: true} }
