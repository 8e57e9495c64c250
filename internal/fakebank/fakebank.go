// Package fakebank is an in-memory model of the XYZ Bank manager view. A
// *Bank implements xyzbank.Session and xyzbank.Locator, so the page actions
// and scenarios can run without a browser.
//
// The model keeps the behaviors the suite synchronizes on: freshly rendered
// elements stay hidden for a few polls, element handles go stale when the
// view re-renders, and form submission opens an alert that blocks the page
// until accepted.
package fakebank

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/wanmail/xyzbank"
)

// ErrClosed is returned by every call on a Bank after Quit.
var ErrClosed = errors.New("invalid session id: session was quit")

// errAlertOpen mirrors the WebDriver "unexpected alert open" error.
var errAlertOpen = errors.New("unexpected alert open")

// Customer is one row of the customer table.
type Customer struct {
	ID        int
	FirstName string
	LastName  string
	PostCode  string
}

// DemoCustomers are the customers the public demo starts with.
var DemoCustomers = []Customer{
	{ID: 1, FirstName: "Hermoine", LastName: "Granger", PostCode: "E859AB"},
	{ID: 2, FirstName: "Harry", LastName: "Potter", PostCode: "E725JB"},
	{ID: 3, FirstName: "Ron", LastName: "Weasly", PostCode: "E55555"},
	{ID: 4, FirstName: "Albus", LastName: "Dumbledore", PostCode: "E55656"},
	{ID: 5, FirstName: "Neville", LastName: "Longbottom", PostCode: "E89898"},
}

type view int

const (
	viewBlank view = iota
	viewHome
	viewAddCustomer
	viewCustomers
)

// Option configures a Bank.
type Option func(*Bank)

// WithCustomers replaces DemoCustomers as the initial table.
func WithCustomers(c []Customer) Option {
	return func(b *Bank) {
		b.customers = append([]Customer(nil), c...)
	}
}

// WithRenderDelay sets how many visibility checks a freshly rendered view
// fails before it shows up.
func WithRenderDelay(polls int) Option {
	return func(b *Bank) {
		b.renderDelay = polls
	}
}

// Bank is one browser tab showing the manager view.
type Bank struct {
	mu sync.Mutex

	customers   []Customer
	nextID      int
	renderDelay int

	url    string
	view   view
	closed bool
	alert  *alert

	// Render generation; handles from an older one are stale.
	gen     int
	pending int

	form   map[string]string
	search string

	sortKey     string
	sortReverse bool
}

// New returns a Bank showing a blank page; Navigate loads the manager view.
func New(opts ...Option) *Bank {
	b := &Bank{
		customers: append([]Customer(nil), DemoCustomers...),
		form:      map[string]string{},
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, c := range b.customers {
		if c.ID >= b.nextID {
			b.nextID = c.ID + 1
		}
	}
	if b.nextID == 0 {
		b.nextID = 1
	}
	return b
}

// Customers returns a copy of the stored customers in insertion order.
func (b *Bank) Customers() []Customer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Customer(nil), b.customers...)
}

// URL returns the last navigated URL.
func (b *Bank) URL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url
}

func (b *Bank) Navigate(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.url = url
	b.alert = nil
	b.render(viewHome)
	return nil
}

func (b *Bank) Quit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.closed = true
	return nil
}

func (b *Bank) CurrentDialog() (xyzbank.Dialog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if b.alert == nil {
		return nil, fmt.Errorf("%w: no alert open", xyzbank.ErrNoDialog)
	}
	return b.alert, nil
}

// render switches to v and starts a new generation.
func (b *Bank) render(v view) {
	b.view = v
	b.rerender()
}

func (b *Bank) rerender() {
	b.gen++
	b.pending = b.renderDelay
	b.form = map[string]string{}
	if b.view != viewCustomers {
		b.search = ""
	}
}

// rows returns the customers in display order: filtered by the search box
// and ordered by the active sort key.
func (b *Bank) rows() []Customer {
	var out []Customer
	q := strings.ToLower(b.search)
	for _, c := range b.customers {
		if q == "" || strings.Contains(strings.ToLower(c.FirstName), q) ||
			strings.Contains(strings.ToLower(c.LastName), q) ||
			strings.Contains(strings.ToLower(c.PostCode), q) {
			out = append(out, c)
		}
	}
	if b.sortKey == "" {
		return out
	}
	key := func(c Customer) string {
		switch b.sortKey {
		case "lName":
			return strings.ToLower(c.LastName)
		case "postCd":
			return strings.ToLower(c.PostCode)
		}
		return strings.ToLower(c.FirstName)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if b.sortReverse {
			return key(out[i]) > key(out[j])
		}
		return key(out[i]) < key(out[j])
	})
	return out
}

var sortKeys = []string{"fName", "lName", "postCd"}

func (b *Bank) Find(name string) ([]xyzbank.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	if b.alert != nil {
		return nil, errAlertOpen
	}
	el := func(kind string, arg int) xyzbank.Element {
		return &element{b: b, gen: b.gen, kind: kind, arg: arg}
	}
	var out []xyzbank.Element
	switch name {
	case xyzbank.AddCustomerTab, xyzbank.CustomersTab:
		if b.view != viewBlank {
			out = append(out, el(name, 0))
		}
	case xyzbank.FirstNameInput, xyzbank.LastNameInput, xyzbank.PostCodeInput, xyzbank.SubmitCustomer:
		if b.view == viewAddCustomer {
			out = append(out, el(name, 0))
		}
	case xyzbank.CustomerTable, xyzbank.SearchCustomerBox:
		if b.view == viewCustomers {
			out = append(out, el(name, 0))
		}
	case xyzbank.TableHeaderLinks:
		if b.view == viewCustomers {
			for i := range sortKeys {
				out = append(out, el(name, i))
			}
		}
	case xyzbank.CustomerRows, xyzbank.DeleteButtons:
		if b.view == viewCustomers {
			for _, c := range b.rows() {
				out = append(out, el(name, c.ID))
			}
		}
	default:
		return nil, fmt.Errorf("unknown element %q", name)
	}
	glog.V(3).Infof("fakebank: %q matched %d element(s)", name, len(out))
	return out, nil
}

type alert struct {
	b    *Bank
	text string
}

func (a *alert) Text() string {
	return a.text
}

func (a *alert) Accept() error {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	if a.b.alert != a {
		return fmt.Errorf("accept %q: %w", a.text, xyzbank.ErrNoDialog)
	}
	a.b.alert = nil
	return nil
}

// element is a handle into one render generation of a Bank.
type element struct {
	b    *Bank
	gen  int
	kind string
	// Customer ID for rows, cells and delete buttons, column for header
	// links.
	arg int
	// Cell column, for cells.
	col int
}

// check validates the handle; the Bank must be locked.
func (e *element) check() error {
	switch {
	case e.b.closed:
		return ErrClosed
	case e.b.alert != nil:
		return errAlertOpen
	case e.gen != e.b.gen:
		return fmt.Errorf("%s: %w", e.kind, xyzbank.ErrStaleElement)
	}
	if e.b.customerIndex(e.arg) < 0 && (e.kind == xyzbank.CustomerRows || e.kind == xyzbank.DeleteButtons || e.kind == "cell") {
		return fmt.Errorf("%s: %w", e.kind, xyzbank.ErrStaleElement)
	}
	return nil
}

func (b *Bank) customerIndex(id int) int {
	for i, c := range b.customers {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (e *element) IsVisible() (bool, error) {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.check(); err != nil {
		return false, err
	}
	if e.b.pending > 0 {
		e.b.pending--
		return false, nil
	}
	return true, nil
}

func (e *element) IsClickable() (bool, error) {
	return e.IsVisible()
}

func (e *element) Click() error {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.check(); err != nil {
		return err
	}
	b := e.b
	switch e.kind {
	case xyzbank.AddCustomerTab:
		b.render(viewAddCustomer)
	case xyzbank.CustomersTab:
		b.render(viewCustomers)
	case xyzbank.SubmitCustomer:
		b.submit()
	case xyzbank.TableHeaderLinks:
		b.sortKey = sortKeys[e.arg]
		b.sortReverse = !b.sortReverse
		b.gen++
	case xyzbank.DeleteButtons:
		i := b.customerIndex(e.arg)
		b.customers = append(b.customers[:i], b.customers[i+1:]...)
		b.gen++
	case xyzbank.FirstNameInput, xyzbank.LastNameInput, xyzbank.PostCodeInput, xyzbank.SearchCustomerBox:
	default:
		return fmt.Errorf("%s is not clickable", e.kind)
	}
	return nil
}

// submit mimics the form's required fields and the duplicate check.
func (b *Bank) submit() {
	c := Customer{
		FirstName: b.form[xyzbank.FirstNameInput],
		LastName:  b.form[xyzbank.LastNameInput],
		PostCode:  b.form[xyzbank.PostCodeInput],
	}
	if c.FirstName == "" || c.LastName == "" || c.PostCode == "" {
		return
	}
	for _, o := range b.customers {
		if o.FirstName == c.FirstName && o.LastName == c.LastName {
			b.alert = &alert{b: b, text: xyzbank.DuplicateAlert}
			return
		}
	}
	c.ID = b.nextID
	b.nextID++
	b.customers = append(b.customers, c)
	b.form = map[string]string{}
	b.alert = &alert{b: b, text: xyzbank.AddedAlertPrefix + strconv.Itoa(c.ID)}
}

func (e *element) SetText(text string) error {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.check(); err != nil {
		return err
	}
	switch e.kind {
	case xyzbank.FirstNameInput, xyzbank.LastNameInput, xyzbank.PostCodeInput:
		e.b.form[e.kind] = text
	case xyzbank.SearchCustomerBox:
		e.b.search = text
		e.b.gen++
		// The handle to the box itself survives filtering.
		e.gen = e.b.gen
	default:
		return fmt.Errorf("cannot type into %s", e.kind)
	}
	return nil
}

func (e *element) cells() []string {
	c := e.b.customers[e.b.customerIndex(e.arg)]
	return []string{c.FirstName, c.LastName, c.PostCode, "", "Delete"}
}

func (e *element) Text() (string, error) {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.check(); err != nil {
		return "", err
	}
	switch e.kind {
	case xyzbank.CustomerRows:
		return strings.Join(strings.Fields(strings.Join(e.cells(), " ")), " "), nil
	case "cell":
		return e.cells()[e.col], nil
	case xyzbank.DeleteButtons:
		return "Delete", nil
	case xyzbank.TableHeaderLinks:
		return []string{"First Name", "Last Name", "Post Code"}[e.arg], nil
	case xyzbank.AddCustomerTab:
		return "Add Customer", nil
	case xyzbank.CustomersTab:
		return "Customers", nil
	case xyzbank.SubmitCustomer:
		return "Add Customer", nil
	}
	return "", nil
}

func (e *element) ChildCells() ([]xyzbank.Element, error) {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.check(); err != nil {
		return nil, err
	}
	if e.kind != xyzbank.CustomerRows {
		return nil, nil
	}
	out := make([]xyzbank.Element, len(e.cells()))
	for i := range out {
		out[i] = &element{b: e.b, gen: e.gen, kind: "cell", arg: e.arg, col: i}
	}
	return out, nil
}
