package xyzbank

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTimeoutError(t *testing.T) {
	var err error = &TimeoutError{Condition: "visible", Target: "customer table", Timeout: 10 * time.Second}
	if got, want := err.Error(), "timed out after 10s waiting for customer table to be visible"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	wrapped := fmt.Errorf("step %q: %w", "open customers", err)
	if !errors.Is(wrapped, ErrTimeoutExceeded) {
		t.Error("a wrapped *TimeoutError does not match ErrTimeoutExceeded")
	}
	if errors.Is(wrapped, ErrPreconditionViolation) {
		t.Error("a *TimeoutError matches ErrPreconditionViolation")
	}
}

func TestTimeoutErrorLastCause(t *testing.T) {
	err := &TimeoutError{Condition: "visible", Target: "customer rows", Timeout: time.Second, Last: ErrStaleElement}
	if got, want := err.Error(), "timed out after 1s waiting for customer rows to be visible: last error: stale element reference"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrStaleElement) {
		t.Error("*TimeoutError does not unwrap to its last error")
	}
	if !errors.Is(err, ErrTimeoutExceeded) {
		t.Error("*TimeoutError with a last error does not match ErrTimeoutExceeded")
	}
}

func TestPreconditionError(t *testing.T) {
	var err error = &PreconditionError{Op: "consume dialog", Reason: "no dialog awaited"}
	if got, want := err.Error(), "consume dialog: precondition violated: no dialog awaited"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrPreconditionViolation) {
		t.Error("*PreconditionError does not match ErrPreconditionViolation")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrNoSuchElement, true},
		{fmt.Errorf("find: %w", ErrStaleElement), true},
		{ErrNoDialog, false},
		{&TimeoutError{Condition: "visible", Target: "row", Last: ErrStaleElement}, false},
		{errors.New("unexpected alert open"), false},
		{nil, false},
	}
	for _, tc := range tests {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("IsTransient(%v) = %t, want %t", tc.err, got, tc.want)
		}
	}
}

func TestBankManagerSelectors(t *testing.T) {
	for _, name := range []string{
		AddCustomerTab, CustomersTab, FirstNameInput, LastNameInput, PostCodeInput,
		SubmitCustomer, CustomerTable, CustomerRows, DeleteButtons, TableHeaderLinks,
		SearchCustomerBox,
	} {
		sel, ok := BankManagerSelectors[name]
		if !ok {
			t.Errorf("no selector for %q", name)
			continue
		}
		if sel.By == "" || sel.Value == "" {
			t.Errorf("selector for %q is incomplete: %+v", name, sel)
		}
	}
}
