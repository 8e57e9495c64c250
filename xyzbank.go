package xyzbank

import "fmt"

//go:generate mockgen -destination internal/mocks/xyzbank_mock.go -package mocks github.com/wanmail/xyzbank Element,Dialog,Session,Locator

// Element is a live handle to one DOM element.
type Element interface {
	// IsVisible returns true if the element is displayed.
	IsVisible() (bool, error)
	// IsClickable returns true if the element is displayed and enabled.
	IsClickable() (bool, error)
	// Click clicks on the element.
	Click() error
	// SetText replaces the element's value with text.
	SetText(text string) error
	// Text returns the rendered text of the element.
	Text() (string, error)
	// ChildCells returns the table cells (td) below the element, in order.
	ChildCells() ([]Element, error)
}

// Dialog is a JavaScript alert or confirm box that is currently open.
type Dialog interface {
	// Text returns the message shown by the dialog.
	Text() string
	// Accept accepts (closes) the dialog.
	Accept() error
}

// Session is one browser session, exclusively owned by one scenario.
type Session interface {
	// Navigate loads url in the current window.
	Navigate(url string) error
	// CurrentDialog returns the open dialog. It returns an error matching
	// ErrNoDialog when no dialog is open.
	CurrentDialog() (Dialog, error)
	// Quit ends the session. The browser instance will be closed.
	Quit() error
}

// Locator resolves symbolic element names to the elements currently in the
// page. No match is not an error: Find returns an empty slice.
type Locator interface {
	Find(name string) ([]Element, error)
}

// Ref identifies a single element: the Index-th match of Name.
type Ref struct {
	Name  string
	Index int
}

// At returns a Ref to the index-th element named name.
func At(name string, index int) Ref {
	return Ref{Name: name, Index: index}
}

// First returns a Ref to the first element named name.
func First(name string) Ref {
	return Ref{Name: name}
}

func (r Ref) String() string {
	if r.Index == 0 {
		return r.Name
	}
	return fmt.Sprintf("%s[%d]", r.Name, r.Index)
}

// Resolve returns the element r refers to. It returns an error matching
// ErrNoSuchElement when fewer than r.Index+1 elements match.
func (r Ref) Resolve(l Locator) (Element, error) {
	elems, err := l.Find(r.Name)
	if err != nil {
		return nil, err
	}
	if r.Index < 0 || r.Index >= len(elems) {
		return nil, fmt.Errorf("%s: %w (%d found)", r, ErrNoSuchElement, len(elems))
	}
	return elems[r.Index], nil
}
