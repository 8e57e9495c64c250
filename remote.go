// Selenium-backed Session and Locator.
// See https://www.w3.org/TR/webdriver for the protocol.

package xyzbank

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/log"
)

// Errors returned by the WebDriver server that the suite treats specially,
// keyed by the W3C error code (or the legacy message prefix).
var remoteErrors = map[string]error{
	"no such element":         ErrNoSuchElement,
	"stale element reference": ErrStaleElement,
	"no such alert":           ErrNoDialog,
	"no alert open":           ErrNoDialog,
}

// classify wraps err with the matching sentinel from remoteErrors, so that
// callers can use errors.Is while keeping the server's message.
func classify(err error) error {
	if err == nil {
		return nil
	}
	code := err.Error()
	var se *selenium.Error
	if errors.As(err, &se) {
		code = se.Err
	}
	for prefix, sentinel := range remoteErrors {
		if strings.HasPrefix(code, prefix) {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
	}
	return err
}

// RemoteSession implements Session and Locator over a WebDriver session.
type RemoteSession struct {
	wd        selenium.WebDriver
	selectors Selectors
}

// NewRemoteSession wraps wd. Element names are resolved through selectors.
func NewRemoteSession(wd selenium.WebDriver, selectors Selectors) *RemoteSession {
	return &RemoteSession{wd: wd, selectors: selectors}
}

// WebDriver returns the underlying WebDriver client.
func (s *RemoteSession) WebDriver() selenium.WebDriver {
	return s.wd
}

func (s *RemoteSession) Navigate(url string) error {
	debugLog("navigate %s", url)
	return classify(s.wd.Get(url))
}

func (s *RemoteSession) CurrentDialog() (Dialog, error) {
	text, err := s.wd.AlertText()
	if err != nil {
		return nil, classify(err)
	}
	return &remoteDialog{wd: s.wd, text: text}, nil
}

func (s *RemoteSession) Quit() error {
	return s.wd.Quit()
}

func (s *RemoteSession) Find(name string) ([]Element, error) {
	sel, ok := s.selectors[name]
	if !ok {
		return nil, fmt.Errorf("no selector registered for element %q", name)
	}
	wes, err := s.wd.FindElements(sel.By, sel.Value)
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrNoSuchElement) {
			// Some drivers report an empty match as an error.
			return nil, nil
		}
		return nil, fmt.Errorf("find %q (%s %s): %w", name, sel.By, sel.Value, err)
	}
	debugLog("find %q: %d match(es)", name, len(wes))
	return wrapElements(wes), nil
}

// Screenshot takes a PNG screenshot of the browser window.
func (s *RemoteSession) Screenshot() ([]byte, error) {
	return s.wd.Screenshot()
}

// BrowserLog returns the browser console messages collected so far, one per
// line. Logging must have been enabled in the capabilities.
func (s *RemoteSession) BrowserLog() (string, error) {
	msgs, err := s.wd.Log(log.Browser)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s [%s] %s\n", m.Timestamp.Format("15:04:05.000"), m.Level, m.Message)
	}
	return b.String(), nil
}

type remoteDialog struct {
	wd   selenium.WebDriver
	text string
}

func (d *remoteDialog) Text() string {
	return d.text
}

func (d *remoteDialog) Accept() error {
	return classify(d.wd.AcceptAlert())
}

type remoteElement struct {
	we selenium.WebElement
}

func wrapElements(wes []selenium.WebElement) []Element {
	elems := make([]Element, len(wes))
	for i, we := range wes {
		elems[i] = &remoteElement{we: we}
	}
	return elems
}

func (e *remoteElement) IsVisible() (bool, error) {
	ok, err := e.we.IsDisplayed()
	return ok, classify(err)
}

// IsClickable mirrors Selenium's elementToBeClickable: displayed and enabled.
func (e *remoteElement) IsClickable() (bool, error) {
	displayed, err := e.we.IsDisplayed()
	if err != nil || !displayed {
		return false, classify(err)
	}
	enabled, err := e.we.IsEnabled()
	return enabled, classify(err)
}

func (e *remoteElement) Click() error {
	return classify(e.we.Click())
}

func (e *remoteElement) SetText(text string) error {
	if err := e.we.Clear(); err != nil {
		return classify(err)
	}
	return classify(e.we.SendKeys(text))
}

func (e *remoteElement) Text() (string, error) {
	text, err := e.we.Text()
	return text, classify(err)
}

func (e *remoteElement) ChildCells() ([]Element, error) {
	wes, err := e.we.FindElements(selenium.ByTagName, "td")
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrNoSuchElement) {
			return nil, nil
		}
		return nil, err
	}
	return wrapElements(wes), nil
}
