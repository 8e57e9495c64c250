// Package page drives the manager view of the XYZ Bank demo. Every action
// waits on the synchronization gate before it touches an element, and reads
// the customer table afresh each time it needs it.
package page

import (
	"fmt"
	"slices"
	"strings"

	"github.com/golang/glog"

	"github.com/wanmail/xyzbank"
	"github.com/wanmail/xyzbank/wait"
)

// Manager is the bank manager view: tabs, the add customer form and the
// customer table.
type Manager struct {
	session xyzbank.Session
	locator xyzbank.Locator
	gate    *wait.Gate
}

// NewManager returns a Manager acting through session and locator and
// synchronizing through gate.
func NewManager(session xyzbank.Session, locator xyzbank.Locator, gate *wait.Gate) *Manager {
	return &Manager{session: session, locator: locator, gate: gate}
}

// Open loads url and waits for the manager tabs.
func (m *Manager) Open(url string) error {
	if err := m.session.Navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	for _, tab := range []string{xyzbank.AddCustomerTab, xyzbank.CustomersTab} {
		if _, err := m.gate.AwaitVisible(xyzbank.First(tab)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) click(ref xyzbank.Ref) error {
	e, err := m.gate.AwaitClickable(ref)
	if err != nil {
		return err
	}
	if err := e.Click(); err != nil {
		return fmt.Errorf("clicking %s: %w", ref, err)
	}
	return nil
}

func (m *Manager) enter(name, text string) error {
	e, err := m.gate.AwaitVisible(xyzbank.First(name))
	if err != nil {
		return err
	}
	if err := e.SetText(text); err != nil {
		return fmt.Errorf("typing %q into %s: %w", text, name, err)
	}
	return nil
}

// OpenAddCustomer switches to the add customer form.
func (m *Manager) OpenAddCustomer() error {
	if err := m.click(xyzbank.First(xyzbank.AddCustomerTab)); err != nil {
		return err
	}
	_, err := m.gate.AwaitVisible(xyzbank.First(xyzbank.FirstNameInput))
	return err
}

// OpenCustomers switches to the customer table.
func (m *Manager) OpenCustomers() error {
	if err := m.click(xyzbank.First(xyzbank.CustomersTab)); err != nil {
		return err
	}
	_, err := m.gate.AwaitVisible(xyzbank.First(xyzbank.CustomerTable))
	return err
}

func (m *Manager) EnterFirstName(s string) error {
	return m.enter(xyzbank.FirstNameInput, s)
}

func (m *Manager) EnterLastName(s string) error {
	return m.enter(xyzbank.LastNameInput, s)
}

func (m *Manager) EnterPostCode(s string) error {
	return m.enter(xyzbank.PostCodeInput, s)
}

// SubmitCustomer clicks the submit button of the add customer form. The
// confirmation dialog is left open; see DialogText.
func (m *Manager) SubmitCustomer() error {
	return m.click(xyzbank.First(xyzbank.SubmitCustomer))
}

// DialogText waits for the open dialog, accepts it and returns its text.
func (m *Manager) DialogText() (string, error) {
	if err := m.gate.AwaitDialogPresent(); err != nil {
		return "", err
	}
	return m.gate.ConsumeDialog()
}

// AddCustomer fills in and submits the add customer form and returns the
// text of the confirmation dialog.
func (m *Manager) AddCustomer(first, last, postCode string) (string, error) {
	err := m.Run(
		Step{"open add customer", m.OpenAddCustomer},
		Step{"enter first name", func() error { return m.EnterFirstName(first) }},
		Step{"enter last name", func() error { return m.EnterLastName(last) }},
		Step{"enter post code", func() error { return m.EnterPostCode(postCode) }},
		Step{"submit", m.SubmitCustomer},
	)
	if err != nil {
		return "", err
	}
	return m.DialogText()
}

type row struct {
	index int
	name  string
}

// rows waits for the table and reads the first cell of every row. Rows
// whose first cell is empty are skipped, but index always counts all rows.
func (m *Manager) rows() ([]row, error) {
	if _, err := m.gate.AwaitVisible(xyzbank.First(xyzbank.CustomerTable)); err != nil {
		return nil, err
	}
	var out []row
	err := m.gate.Until("readable", xyzbank.CustomerRows, func() (bool, error) {
		var err error
		out, err = m.readRows()
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// readRows reads the table once, without waiting.
func (m *Manager) readRows() ([]row, error) {
	elems, err := m.locator.Find(xyzbank.CustomerRows)
	if err != nil {
		return nil, err
	}
	var out []row
	for i, e := range elems {
		cells, err := e.ChildCells()
		if err != nil {
			return nil, err
		}
		if len(cells) == 0 {
			continue
		}
		name, err := cells[0].Text()
		if err != nil {
			return nil, err
		}
		if name != "" {
			out = append(out, row{index: i, name: name})
		}
	}
	return out, nil
}

// rowCount returns the number of rendered rows, empty or not.
func (m *Manager) rowCount() (int, error) {
	elems, err := m.locator.Find(xyzbank.CustomerRows)
	return len(elems), err
}

// CustomerNames returns the first names of the customer table in row order.
// It is empty, not an error, for an empty table.
func (m *Manager) CustomerNames() ([]string, error) {
	rows, err := m.rows()
	if err != nil {
		return nil, err
	}
	names := rowNames(rows)
	glog.V(2).Infof("customer table: %q", names)
	return names, nil
}

// CustomerCount returns the number of named customers in the table.
func (m *Manager) CustomerCount() (int, error) {
	names, err := m.CustomerNames()
	return len(names), err
}

// IsCustomerPresent reports whether a row's first name equals name.
func (m *Manager) IsCustomerPresent(name string) (bool, error) {
	names, err := m.CustomerNames()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// SortByFirstName clicks the first name column header and waits until the
// table shows the names in order. The demo toggles the direction on each
// click, starting with descending, so a table that was in ascending order
// must change; one already in descending order may stay as it is.
func (m *Manager) SortByFirstName() error {
	before, err := m.CustomerNames()
	if err != nil {
		return err
	}
	if err := m.click(xyzbank.At(xyzbank.FirstNameHeader, 0)); err != nil {
		return err
	}
	return m.gate.Until("sorted", xyzbank.CustomerRows, func() (bool, error) {
		rows, err := m.readRows()
		if err != nil {
			return false, err
		}
		now := rowNames(rows)
		if !ordered(now, 1) && !ordered(now, -1) {
			return false, nil
		}
		return !slices.Equal(now, before) || ordered(before, -1), nil
	})
}

// ordered reports whether names are sorted case-insensitively, ascending
// for dir 1 and descending for dir -1. Equal neighbours are allowed.
func ordered(names []string, dir int) bool {
	for i := 1; i < len(names); i++ {
		if dir*strings.Compare(strings.ToLower(names[i-1]), strings.ToLower(names[i])) > 0 {
			return false
		}
	}
	return true
}

func rowNames(rows []row) []string {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.name
	}
	return names
}

// SearchCustomers types query into the search box and waits until every
// row left in the table matches it. The demo matches the query
// case-insensitively against first name, last name and post code.
func (m *Manager) SearchCustomers(query string) error {
	if err := m.enter(xyzbank.SearchCustomerBox, query); err != nil {
		return err
	}
	q := strings.ToLower(query)
	return m.gate.Until("filtered", fmt.Sprintf("%s matching %q", xyzbank.CustomerRows, query), func() (bool, error) {
		elems, err := m.locator.Find(xyzbank.CustomerRows)
		if err != nil {
			return false, err
		}
		for _, e := range elems {
			ok, err := rowMatches(e, q)
			if !ok || err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

// rowMatches reports whether one of the first three cells of e contains
// q. Rows without cells match.
func rowMatches(e xyzbank.Element, q string) (bool, error) {
	cells, err := e.ChildCells()
	if err != nil || len(cells) == 0 {
		return err == nil, err
	}
	if len(cells) > 3 {
		cells = cells[:3]
	}
	for _, c := range cells {
		text, err := c.Text()
		if err != nil {
			return false, err
		}
		if strings.Contains(strings.ToLower(text), q) {
			return true, nil
		}
	}
	return false, nil
}

// DeleteCustomer deletes the first row whose first name is name.
func (m *Manager) DeleteCustomer(name string) error {
	rows, err := m.rows()
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.name == name {
			return m.deleteRow(r.index, name)
		}
	}
	return &xyzbank.PreconditionError{Op: "delete customer", Reason: fmt.Sprintf("no customer named %q", name)}
}

// DeleteCustomerAt deletes the customer at position i of CustomerNames.
func (m *Manager) DeleteCustomerAt(i int) error {
	rows, err := m.rows()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(rows) {
		return &xyzbank.PreconditionError{Op: "delete customer", Reason: fmt.Sprintf("index %d out of range [0, %d)", i, len(rows))}
	}
	return m.deleteRow(rows[i].index, rows[i].name)
}

func (m *Manager) deleteRow(index int, name string) error {
	before, err := m.rowCount()
	if err != nil {
		return err
	}
	if err := m.click(xyzbank.At(xyzbank.DeleteButtons, index)); err != nil {
		return err
	}
	err = m.gate.Until("deleted", fmt.Sprintf("customer %q", name), func() (bool, error) {
		n, err := m.rowCount()
		return n == before-1, err
	})
	if err != nil {
		return err
	}
	glog.V(2).Infof("deleted customer %q (row %d)", name, index)
	return nil
}

// Step is one named action of a scenario.
type Step struct {
	Name string
	Do   func() error
}

// Run runs steps in order and stops at the first failure.
func (m *Manager) Run(steps ...Step) error {
	for i, s := range steps {
		glog.V(2).Infof("step %d/%d: %s", i+1, len(steps), s.Name)
		if err := s.Do(); err != nil {
			return fmt.Errorf("step %q: %w", s.Name, err)
		}
	}
	return nil
}
