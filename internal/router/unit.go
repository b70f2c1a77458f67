package router

import "strings"

// Frame collects what units draw during one tick, plus the keys the host
// received since the previous tick.
type Frame struct {
	Keys []string

	title   []string
	status  []string
	content strings.Builder
}

// NewFrame returns a frame carrying keys.
func NewFrame(keys ...string) *Frame {
	return &Frame{Keys: keys}
}

// Pressed reports whether key was received this tick.
func (f *Frame) Pressed(key string) bool {
	for _, k := range f.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Title appends a title bar segment.
func (f *Frame) Title(s string) { f.title = append(f.title, s) }

// Status appends a status bar segment.
func (f *Frame) Status(s string) { f.status = append(f.status, s) }

// Println appends a content line.
func (f *Frame) Println(s string) {
	f.content.WriteString(s)
	f.content.WriteByte('\n')
}

// TitleBar returns the title segments in draw order.
func (f *Frame) TitleBar() []string { return f.title }

// StatusBar returns the status segments in draw order.
func (f *Frame) StatusBar() []string { return f.status }

// Content returns the drawn content.
func (f *Frame) Content() string { return f.content.String() }

// Unit is one composable piece of a page. Each tick the page calls TitleBar,
// StatusBar and then Content on its units in order.
type Unit interface {
	TitleBar(f *Frame)
	StatusBar(f *Frame)
	Content(f *Frame) Action

	ID() int
	SetID(id int)
	ParentID() int
	SetParentID(id int)
}

// UnitBase carries a unit's identity. Embed it to satisfy the id part of
// Unit; the draw methods that a unit leaves empty can come from it too.
type UnitBase struct {
	id  int
	pid int
}

func (u *UnitBase) ID() int             { return u.id }
func (u *UnitBase) SetID(id int)        { u.id = id }
func (u *UnitBase) ParentID() int       { return u.pid }
func (u *UnitBase) SetParentID(pid int) { u.pid = pid }

// TitleBar draws nothing.
func (u *UnitBase) TitleBar(*Frame) {}

// StatusBar draws nothing.
func (u *UnitBase) StatusBar(*Frame) {}
