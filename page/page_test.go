package page_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/mock/gomock"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/wanmail/xyzbank"
	"github.com/wanmail/xyzbank/internal/fakebank"
	"github.com/wanmail/xyzbank/internal/mocks"
	"github.com/wanmail/xyzbank/page"
	"github.com/wanmail/xyzbank/wait"
)

const baseURL = "http://bank.test/#/manager"

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newManager(t *testing.T, opts ...fakebank.Option) (*page.Manager, *fakebank.Bank, *testingclock.FakeClock) {
	t.Helper()
	bank := fakebank.New(opts...)
	fc := testingclock.NewFakeClock(epoch)
	m := page.NewManager(bank, bank, wait.New(bank, bank, 2*time.Second, wait.WithClock(fc)))
	if err := m.Open(baseURL); err != nil {
		t.Fatalf("Open(%q) returned error: %v", baseURL, err)
	}
	return m, bank, fc
}

func customerNames(t *testing.T, m *page.Manager) []string {
	t.Helper()
	if err := m.OpenCustomers(); err != nil {
		t.Fatalf("OpenCustomers() returned error: %v", err)
	}
	names, err := m.CustomerNames()
	if err != nil {
		t.Fatalf("CustomerNames() returned error: %v", err)
	}
	return names
}

func TestCustomerNames(t *testing.T) {
	m, bank, _ := newManager(t)
	if got := bank.URL(); got != baseURL {
		t.Errorf("Open() navigated to %q, want %q", got, baseURL)
	}
	want := []string{"Hermoine", "Harry", "Ron", "Albus", "Neville"}
	if diff := cmp.Diff(want, customerNames(t, m)); diff != "" {
		t.Errorf("CustomerNames() returned diff (-want/+got):\n%s", diff)
	}
	n, err := m.CustomerCount()
	if err != nil || n != len(want) {
		t.Errorf("CustomerCount() = %d, %v, want %d", n, err, len(want))
	}
}

func TestCustomerNamesEmptyTable(t *testing.T) {
	m, _, _ := newManager(t, fakebank.WithCustomers(nil))
	if names := customerNames(t, m); len(names) != 0 {
		t.Errorf("CustomerNames() = %q, want empty", names)
	}
}

func TestRenderDelay(t *testing.T) {
	m, _, fc := newManager(t, fakebank.WithRenderDelay(3))
	names := customerNames(t, m)
	if len(names) != len(fakebank.DemoCustomers) {
		t.Errorf("CustomerNames() = %q, want %d names", names, len(fakebank.DemoCustomers))
	}
	if fc.Since(epoch) == 0 {
		t.Error("no time passed waiting for delayed rendering")
	}
}

func TestAddCustomer(t *testing.T) {
	m, bank, _ := newManager(t)

	text, err := m.AddCustomer("Luna", "Lovegood", "1234567890")
	if err != nil {
		t.Fatalf("AddCustomer() returned error: %v", err)
	}
	if want := xyzbank.AddedAlertPrefix + "6"; text != want {
		t.Errorf("AddCustomer() = %q, want %q", text, want)
	}
	got := bank.Customers()
	if last := got[len(got)-1]; last != (fakebank.Customer{ID: 6, FirstName: "Luna", LastName: "Lovegood", PostCode: "1234567890"}) {
		t.Errorf("last customer is %+v, want Luna Lovegood", last)
	}

	present, err := m.IsCustomerPresent("Luna")
	if err == nil {
		t.Errorf("IsCustomerPresent() on the add customer form returned %t, want an error", present)
	}
	if err := m.OpenCustomers(); err != nil {
		t.Fatalf("OpenCustomers() returned error: %v", err)
	}
	if present, err := m.IsCustomerPresent("Luna"); err != nil || !present {
		t.Errorf("IsCustomerPresent(Luna) = %t, %v, want true", present, err)
	}
}

func TestAddDuplicateCustomer(t *testing.T) {
	m, bank, _ := newManager(t)
	text, err := m.AddCustomer("Harry", "Potter", "E725JB")
	if err != nil {
		t.Fatalf("AddCustomer() returned error: %v", err)
	}
	if text != xyzbank.DuplicateAlert {
		t.Errorf("AddCustomer() = %q, want %q", text, xyzbank.DuplicateAlert)
	}
	if n := len(bank.Customers()); n != len(fakebank.DemoCustomers) {
		t.Errorf("%d customers after a duplicate, want %d", n, len(fakebank.DemoCustomers))
	}
}

func TestSubmitWithoutDialogTimesOut(t *testing.T) {
	m, _, _ := newManager(t)
	if err := m.OpenAddCustomer(); err != nil {
		t.Fatalf("OpenAddCustomer() returned error: %v", err)
	}
	// The form requires all fields, so nothing is submitted.
	if err := m.EnterFirstName("Luna"); err != nil {
		t.Fatalf("EnterFirstName() returned error: %v", err)
	}
	if err := m.SubmitCustomer(); err != nil {
		t.Fatalf("SubmitCustomer() returned error: %v", err)
	}
	if _, err := m.DialogText(); !errors.Is(err, xyzbank.ErrTimeoutExceeded) {
		t.Errorf("DialogText() returned %v, want ErrTimeoutExceeded", err)
	}
}

func TestSortByFirstName(t *testing.T) {
	m, _, _ := newManager(t, fakebank.WithCustomers([]fakebank.Customer{
		{ID: 1, FirstName: "bob", LastName: "B", PostCode: "1"},
		{ID: 2, FirstName: "Alice", LastName: "A", PostCode: "2"},
		{ID: 3, FirstName: "Carol", LastName: "C", PostCode: "3"},
	}))
	customerNames(t, m)

	if err := m.SortByFirstName(); err != nil {
		t.Fatalf("SortByFirstName() returned error: %v", err)
	}
	got, err := m.CustomerNames()
	if err != nil {
		t.Fatalf("CustomerNames() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"Carol", "bob", "Alice"}, got); diff != "" {
		t.Errorf("names after one sort click, diff (-want/+got):\n%s", diff)
	}

	if err := m.SortByFirstName(); err != nil {
		t.Fatalf("SortByFirstName() returned error: %v", err)
	}
	got, err = m.CustomerNames()
	if err != nil {
		t.Fatalf("CustomerNames() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"Alice", "bob", "Carol"}, got); diff != "" {
		t.Errorf("names after two sort clicks, diff (-want/+got):\n%s", diff)
	}
}

func TestSearchCustomers(t *testing.T) {
	m, _, _ := newManager(t)
	customerNames(t, m)
	if err := m.SearchCustomers("potter"); err != nil {
		t.Fatalf("SearchCustomers() returned error: %v", err)
	}
	got, err := m.CustomerNames()
	if err != nil {
		t.Fatalf("CustomerNames() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"Harry"}, got); diff != "" {
		t.Errorf("CustomerNames() after search returned diff (-want/+got):\n%s", diff)
	}
}

func TestDeleteCustomer(t *testing.T) {
	m, bank, _ := newManager(t, fakebank.WithCustomers([]fakebank.Customer{
		{ID: 1, FirstName: "Harry", LastName: "Potter", PostCode: "1"},
		{ID: 2, FirstName: "Ron", LastName: "Weasly", PostCode: "2"},
		{ID: 3, FirstName: "Harry", LastName: "Styles", PostCode: "3"},
	}))
	customerNames(t, m)

	if err := m.DeleteCustomer("Harry"); err != nil {
		t.Fatalf("DeleteCustomer(Harry) returned error: %v", err)
	}
	var ids []int
	for _, c := range bank.Customers() {
		ids = append(ids, c.ID)
	}
	if diff := cmp.Diff([]int{2, 3}, ids); diff != "" {
		t.Errorf("DeleteCustomer(Harry) left customers diff (-want/+got):\n%s", diff)
	}

	if err := m.DeleteCustomerAt(1); err != nil {
		t.Fatalf("DeleteCustomerAt(1) returned error: %v", err)
	}
	got, err := m.CustomerNames()
	if err != nil {
		t.Fatalf("CustomerNames() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"Ron"}, got); diff != "" {
		t.Errorf("CustomerNames() after deleting returned diff (-want/+got):\n%s", diff)
	}

	if err := m.DeleteCustomer("Hermoine"); !errors.Is(err, xyzbank.ErrPreconditionViolation) {
		t.Errorf("DeleteCustomer(Hermoine) returned %v, want ErrPreconditionViolation", err)
	}
	if err := m.DeleteCustomerAt(3); !errors.Is(err, xyzbank.ErrPreconditionViolation) {
		t.Errorf("DeleteCustomerAt(3) returned %v, want ErrPreconditionViolation", err)
	}
}

func TestOpenCustomersTimesOutOnBlankPage(t *testing.T) {
	bank := fakebank.New()
	fc := testingclock.NewFakeClock(epoch)
	m := page.NewManager(bank, bank, wait.New(bank, bank, time.Second, wait.WithClock(fc)))

	err := m.OpenCustomers()
	var te *xyzbank.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("OpenCustomers() returned %v, want a *xyzbank.TimeoutError", err)
	}
	if te.Target != xyzbank.CustomersTab || te.Condition != "clickable" {
		t.Errorf("OpenCustomers() timed out on %s/%s, want %s/clickable", te.Target, te.Condition, xyzbank.CustomersTab)
	}
	if got := fc.Since(epoch); got != time.Second {
		t.Errorf("OpenCustomers() waited %s, want 1s", got)
	}
}

func TestRun(t *testing.T) {
	m, _, _ := newManager(t)
	errBoom := errors.New("boom")
	var ran []string
	step := func(name string, err error) page.Step {
		return page.Step{Name: name, Do: func() error {
			ran = append(ran, name)
			return err
		}}
	}

	err := m.Run(step("one", nil), step("two", errBoom), step("three", nil))
	if !errors.Is(err, errBoom) {
		t.Fatalf("Run() returned %v, want %v", err, errBoom)
	}
	if !strings.Contains(err.Error(), `"two"`) {
		t.Errorf("Run() returned %q, want it to name the failed step", err)
	}
	if diff := cmp.Diff([]string{"one", "two"}, ran); diff != "" {
		t.Errorf("Run() ran steps diff (-want/+got):\n%s", diff)
	}
	if err := m.Run(); err != nil {
		t.Errorf("Run() with no steps returned error: %v", err)
	}
}

func TestCustomerNamesSkipsEmptyFirstCell(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mocks.NewMockSession(ctrl)
	locator := mocks.NewMockLocator(ctrl)
	fc := testingclock.NewFakeClock(epoch)
	m := page.NewManager(session, locator, wait.New(session, locator, time.Second, wait.WithClock(fc)))

	table := mocks.NewMockElement(ctrl)
	locator.EXPECT().Find(xyzbank.CustomerTable).Return([]xyzbank.Element{table}, nil)
	table.EXPECT().IsVisible().Return(true, nil)

	newRow := func(first string) xyzbank.Element {
		row := mocks.NewMockElement(ctrl)
		cell := mocks.NewMockElement(ctrl)
		row.EXPECT().ChildCells().Return([]xyzbank.Element{cell}, nil)
		cell.EXPECT().Text().Return(first, nil)
		return row
	}
	headerOnly := mocks.NewMockElement(ctrl)
	headerOnly.EXPECT().ChildCells().Return(nil, nil)
	rows := []xyzbank.Element{newRow("Harry"), newRow(""), headerOnly, newRow("Ron")}
	locator.EXPECT().Find(xyzbank.CustomerRows).Return(rows, nil)

	got, err := m.CustomerNames()
	if err != nil {
		t.Fatalf("CustomerNames() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"Harry", "Ron"}, got); diff != "" {
		t.Errorf("CustomerNames() returned diff (-want/+got):\n%s", diff)
	}
}

func TestCustomerNamesRereadsStaleRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mocks.NewMockSession(ctrl)
	locator := mocks.NewMockLocator(ctrl)
	fc := testingclock.NewFakeClock(epoch)
	m := page.NewManager(session, locator, wait.New(session, locator, time.Second, wait.WithClock(fc)))

	table := mocks.NewMockElement(ctrl)
	locator.EXPECT().Find(xyzbank.CustomerTable).Return([]xyzbank.Element{table}, nil)
	table.EXPECT().IsVisible().Return(true, nil)

	stale := mocks.NewMockElement(ctrl)
	stale.EXPECT().ChildCells().Return(nil, xyzbank.ErrStaleElement)
	fresh := mocks.NewMockElement(ctrl)
	cell := mocks.NewMockElement(ctrl)
	fresh.EXPECT().ChildCells().Return([]xyzbank.Element{cell}, nil)
	cell.EXPECT().Text().Return("Albus", nil)
	gomock.InOrder(
		locator.EXPECT().Find(xyzbank.CustomerRows).Return([]xyzbank.Element{stale}, nil),
		locator.EXPECT().Find(xyzbank.CustomerRows).Return([]xyzbank.Element{fresh}, nil),
	)

	got, err := m.CustomerNames()
	if err != nil {
		t.Fatalf("CustomerNames() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"Albus"}, got); diff != "" {
		t.Errorf("CustomerNames() returned diff (-want/+got):\n%s", diff)
	}
}

// mockRow returns a table row whose cells hold texts. It can be read any
// number of times.
func mockRow(ctrl *gomock.Controller, texts ...string) xyzbank.Element {
	row := mocks.NewMockElement(ctrl)
	var cells []xyzbank.Element
	for _, text := range texts {
		c := mocks.NewMockElement(ctrl)
		c.EXPECT().Text().Return(text, nil).AnyTimes()
		cells = append(cells, c)
	}
	row.EXPECT().ChildCells().Return(cells, nil).AnyTimes()
	return row
}

func newMockManager(t *testing.T, timeout time.Duration) (*page.Manager, *gomock.Controller, *mocks.MockLocator, *testingclock.FakeClock) {
	t.Helper()
	ctrl := gomock.NewController(t)
	session := mocks.NewMockSession(ctrl)
	locator := mocks.NewMockLocator(ctrl)
	fc := testingclock.NewFakeClock(epoch)
	m := page.NewManager(session, locator, wait.New(session, locator, timeout, wait.WithClock(fc)))

	table := mocks.NewMockElement(ctrl)
	table.EXPECT().IsVisible().Return(true, nil).AnyTimes()
	locator.EXPECT().Find(xyzbank.CustomerTable).Return([]xyzbank.Element{table}, nil).AnyTimes()
	return m, ctrl, locator, fc
}

func expectHeaderClick(ctrl *gomock.Controller, locator *mocks.MockLocator) {
	header := mocks.NewMockElement(ctrl)
	header.EXPECT().IsClickable().Return(true, nil)
	header.EXPECT().Click().Return(nil)
	locator.EXPECT().Find(xyzbank.FirstNameHeader).Return([]xyzbank.Element{header}, nil)
}

func TestSortByFirstNameWaitsForNewOrder(t *testing.T) {
	m, ctrl, locator, fc := newMockManager(t, time.Second)
	ascending := []xyzbank.Element{mockRow(ctrl, "Albus"), mockRow(ctrl, "harry"), mockRow(ctrl, "Ron")}
	descending := []xyzbank.Element{mockRow(ctrl, "Ron"), mockRow(ctrl, "harry"), mockRow(ctrl, "Albus")}

	expectHeaderClick(ctrl, locator)
	gomock.InOrder(
		locator.EXPECT().Find(xyzbank.CustomerRows).Return(ascending, nil),
		// Not re-rendered yet.
		locator.EXPECT().Find(xyzbank.CustomerRows).Return(ascending, nil),
		locator.EXPECT().Find(xyzbank.CustomerRows).Return(nil, xyzbank.ErrStaleElement),
		locator.EXPECT().Find(xyzbank.CustomerRows).Return(descending, nil),
	)

	if err := m.SortByFirstName(); err != nil {
		t.Fatalf("SortByFirstName() returned error: %v", err)
	}
	if got, want := fc.Since(epoch), 2*wait.DefaultInterval; got != want {
		t.Errorf("SortByFirstName() waited %s, want %s", got, want)
	}
}

func TestSortByFirstNameSettles(t *testing.T) {
	tests := []struct {
		desc    string
		before  []string
		after   []string
		wantErr error
	}{
		{
			desc:   "unsorted to descending",
			before: []string{"Hermoine", "Harry", "Ron"},
			after:  []string{"Ron", "Hermoine", "Harry"},
		},
		{
			desc:   "descending stays descending",
			before: []string{"Ron", "Harry"},
			after:  []string{"Ron", "Harry"},
		},
		{
			desc:   "equal names",
			before: []string{"Ron", "ron"},
			after:  []string{"Ron", "ron"},
		},
		{
			desc:    "ascending never changes",
			before:  []string{"Harry", "Ron"},
			after:   []string{"Harry", "Ron"},
			wantErr: xyzbank.ErrTimeoutExceeded,
		},
		{
			desc:    "never ordered",
			before:  []string{"Harry", "Albus", "Ron"},
			after:   []string{"Harry", "Albus", "Ron"},
			wantErr: xyzbank.ErrTimeoutExceeded,
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			m, ctrl, locator, _ := newMockManager(t, time.Second)
			rows := func(names []string) []xyzbank.Element {
				var out []xyzbank.Element
				for _, n := range names {
					out = append(out, mockRow(ctrl, n))
				}
				return out
			}
			expectHeaderClick(ctrl, locator)
			gomock.InOrder(
				locator.EXPECT().Find(xyzbank.CustomerRows).Return(rows(tc.before), nil),
				locator.EXPECT().Find(xyzbank.CustomerRows).Return(rows(tc.after), nil).MinTimes(1),
			)

			err := m.SortByFirstName()
			if tc.wantErr == nil && err != nil {
				t.Fatalf("SortByFirstName() returned error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("SortByFirstName() returned %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestSearchCustomersWaitsForFilter(t *testing.T) {
	m, ctrl, locator, fc := newMockManager(t, time.Second)

	box := mocks.NewMockElement(ctrl)
	box.EXPECT().IsVisible().Return(true, nil)
	box.EXPECT().SetText("POT").Return(nil)
	locator.EXPECT().Find(xyzbank.SearchCustomerBox).Return([]xyzbank.Element{box}, nil)

	harry := mockRow(ctrl, "Harry", "Potter", "E725JB", "1004", "Delete")
	ron := mockRow(ctrl, "Ron", "Weasly", "E55555", "1007", "Delete")
	// A row matching only in a later column still counts as unfiltered.
	albus := mockRow(ctrl, "Albus", "Dumbledore", "E55656", "pot", "Delete")
	gomock.InOrder(
		locator.EXPECT().Find(xyzbank.CustomerRows).Return([]xyzbank.Element{harry, ron}, nil),
		locator.EXPECT().Find(xyzbank.CustomerRows).Return([]xyzbank.Element{harry, albus}, nil),
		locator.EXPECT().Find(xyzbank.CustomerRows).Return([]xyzbank.Element{harry}, nil),
	)

	if err := m.SearchCustomers("POT"); err != nil {
		t.Fatalf("SearchCustomers() returned error: %v", err)
	}
	if got, want := fc.Since(epoch), 2*wait.DefaultInterval; got != want {
		t.Errorf("SearchCustomers() waited %s, want %s", got, want)
	}
}
