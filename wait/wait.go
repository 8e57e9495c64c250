// Package wait turns "the UI is not ready yet" into a bounded, cooperative
// blocking wait. Every page interaction goes through a Gate first.
//
// A Gate belongs to one scenario and is not safe for concurrent use.
package wait

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"k8s.io/utils/clock"

	"github.com/wanmail/xyzbank"
)

// DefaultInterval is the delay between two evaluations of a condition.
const DefaultInterval = 100 * time.Millisecond

// Condition reports whether the awaited state has been reached. Transient
// errors (see xyzbank.IsTransient) count as false; any other error ends the
// wait and is returned as is.
type Condition func() (bool, error)

// Option configures a Gate.
type Option func(*Gate)

// WithInterval sets the delay between polls. Non-positive values are
// ignored.
func WithInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithClock replaces the real clock, e.g. with a fake one in tests.
func WithClock(c clock.Clock) Option {
	return func(g *Gate) {
		g.clock = c
	}
}

// Gate blocks the caller until a UI condition holds or the timeout elapses.
type Gate struct {
	session  xyzbank.Session
	locator  xyzbank.Locator
	timeout  time.Duration
	interval time.Duration
	clock    clock.Clock

	// dialog is set by a successful AwaitDialogPresent and cleared by
	// ConsumeDialog.
	dialog xyzbank.Dialog
}

// New returns a Gate polling through session and locator. timeout bounds
// every wait; there is no per-call override.
func New(session xyzbank.Session, locator xyzbank.Locator, timeout time.Duration, opts ...Option) *Gate {
	g := &Gate{
		session:  session,
		locator:  locator,
		timeout:  timeout,
		interval: DefaultInterval,
		clock:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Timeout returns the bound applied to every wait.
func (g *Gate) Timeout() time.Duration {
	return g.timeout
}

// Until evaluates cond until it returns true. condition and target only
// name the wait in logs and in the *xyzbank.TimeoutError returned when the
// timeout elapses. The last poll happens at the deadline, never after it.
func (g *Gate) Until(condition, target string, cond Condition) error {
	start := g.clock.Now()
	deadline := start.Add(g.timeout)
	glog.V(2).Infof("waiting up to %s for %s to be %s", g.timeout, target, condition)
	for polls := 1; ; polls++ {
		ok, err := cond()
		if err != nil && !xyzbank.IsTransient(err) {
			return fmt.Errorf("waiting for %s to be %s: %w", target, condition, err)
		}
		if ok && err == nil {
			glog.V(2).Infof("%s is %s after %d poll(s), %s", target, condition, polls, g.clock.Since(start))
			return nil
		}
		left := deadline.Sub(g.clock.Now())
		if left <= 0 {
			glog.Warningf("%s still not %s after %d poll(s)", target, condition, polls)
			return &xyzbank.TimeoutError{Condition: condition, Target: target, Timeout: g.timeout, Last: err}
		}
		g.clock.Sleep(min(g.interval, left))
	}
}

// AwaitVisible waits until ref resolves to a displayed element and returns
// it. ref is resolved again on every poll.
func (g *Gate) AwaitVisible(ref xyzbank.Ref) (xyzbank.Element, error) {
	return g.awaitElement("visible", ref, xyzbank.Element.IsVisible)
}

// AwaitClickable waits until ref resolves to a displayed and enabled
// element and returns it.
func (g *Gate) AwaitClickable(ref xyzbank.Ref) (xyzbank.Element, error) {
	return g.awaitElement("clickable", ref, xyzbank.Element.IsClickable)
}

func (g *Gate) awaitElement(condition string, ref xyzbank.Ref, check func(xyzbank.Element) (bool, error)) (xyzbank.Element, error) {
	var found xyzbank.Element
	err := g.Until(condition, ref.String(), func() (bool, error) {
		e, err := ref.Resolve(g.locator)
		if err != nil {
			return false, err
		}
		ok, err := check(e)
		if ok && err == nil {
			found = e
		}
		return ok, err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// AwaitDialogPresent waits until a JavaScript dialog is open. The dialog is
// kept for exactly one following ConsumeDialog.
func (g *Gate) AwaitDialogPresent() error {
	var d xyzbank.Dialog
	err := g.Until("present", "dialog", func() (bool, error) {
		var err error
		d, err = g.session.CurrentDialog()
		if err != nil {
			if errors.Is(err, xyzbank.ErrNoDialog) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	g.dialog = d
	return nil
}

// ConsumeDialog returns the text of the dialog found by the preceding
// AwaitDialogPresent and accepts it. Calling it without that check, or
// twice, is a precondition violation.
func (g *Gate) ConsumeDialog() (string, error) {
	d := g.dialog
	if d == nil {
		return "", &xyzbank.PreconditionError{Op: "consume dialog", Reason: "no dialog awaited"}
	}
	g.dialog = nil
	text := d.Text()
	if err := d.Accept(); err != nil {
		return "", fmt.Errorf("accepting dialog %q: %w", text, err)
	}
	glog.V(2).Infof("accepted dialog %q", text)
	return text, nil
}
