package xyzbank

import (
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"

	"github.com/blang/semver"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/tebeka/selenium"

	"github.com/wanmail/xyzbank/config"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service) error

// Output specifies that the WebDriver process should log to the provided
// writer.
func Output(w io.Writer) ServiceOption {
	return func(s *Service) error {
		s.output = w
		return nil
	}
}

// WithSelectors replaces BankManagerSelectors for the sessions of the
// service.
func WithSelectors(sel Selectors) ServiceOption {
	return func(s *Service) error {
		if len(sel) == 0 {
			return errors.New("empty selector set")
		}
		s.selectors = sel
		return nil
	}
}

// RemoteFunc opens a WebDriver session; selenium.NewRemote is the default.
type RemoteFunc func(caps selenium.Capabilities, addr string) (selenium.WebDriver, error)

// WithRemote replaces the function used to open WebDriver sessions.
func WithRemote(f RemoteFunc) ServiceOption {
	return func(s *Service) error {
		s.newRemote = f
		return nil
	}
}

// Service controls a locally-running WebDriver process, or points at a remote
// WebDriver server, and hands out independent browser sessions.
type Service struct {
	cfg    config.Config
	addr   string
	driver *selenium.Service

	selectors Selectors
	newRemote RemoteFunc
	output    io.Writer
}

// StartService starts the driver selected by cfg.Browser from cfg.DriverPath.
// If cfg.DriverURL is set no process is started and sessions are opened on
// that server instead.
func StartService(cfg config.Config, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		cfg:       cfg,
		selectors: BankManagerSelectors,
		newRemote: selenium.NewRemote,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	SetDebug(cfg.Debug)

	if cfg.DriverURL != "" {
		s.addr = cfg.DriverURL
		glog.Infof("Using remote WebDriver at %s", s.addr)
		return s, nil
	}
	if cfg.DriverPath == "" {
		return nil, fmt.Errorf("no driver path configured for %s (set %s or %s)", cfg.Browser, config.KeyDriverPath, config.KeyDriverURL)
	}

	port := cfg.DriverPort
	if port == 0 {
		var err error
		if port, err = pickUnusedPort(); err != nil {
			return nil, fmt.Errorf("picking a driver port: %w", err)
		}
	}

	var sopts []selenium.ServiceOption
	if cfg.FrameBuffer {
		// Start an X frame buffer for the browser to run in.
		sopts = append(sopts, selenium.StartFrameBufferWithOptions(selenium.FrameBufferOptions{
			ScreenSize: cfg.ScreenSize,
		}))
	}
	if s.output != nil {
		sopts = append(sopts, selenium.Output(s.output))
	}

	var err error
	switch cfg.Browser {
	case "firefox":
		s.driver, err = selenium.NewGeckoDriverService(cfg.DriverPath, port, sopts...)
		s.addr = fmt.Sprintf("http://127.0.0.1:%d", port)
	default:
		s.driver, err = selenium.NewChromeDriverService(cfg.DriverPath, port, sopts...)
		s.addr = fmt.Sprintf("http://127.0.0.1:%d/wd/hub", port)
	}
	if err != nil {
		return nil, fmt.Errorf("error starting the %s driver %q: %w", cfg.Browser, cfg.DriverPath, err)
	}
	glog.Infof("Started %s driver %q on port %d", cfg.Browser, cfg.DriverPath, port)
	return s, nil
}

// Addr returns the WebDriver URL sessions are opened on.
func (s *Service) Addr() string {
	return s.addr
}

// Stop shuts down the WebDriver process, and the X virtual frame buffer if
// one was started. It is a no-op for a remote WebDriver.
func (s *Service) Stop() error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop()
}

// Browser is one browser session opened by a Service.
type Browser struct {
	*RemoteSession

	// ID identifies the session in logs and artifact names.
	ID string
}

// NewSession opens a new browser, checks its version against
// cfg.MinBrowserVersion and loads cfg.BaseURL.
func (s *Service) NewSession() (*Browser, error) {
	caps := NewCapabilities(s.cfg)
	wd, err := s.newRemote(caps, s.addr)
	if err != nil {
		return nil, fmt.Errorf("NewRemote(%v, %q): %w", caps, s.addr, err)
	}
	b := &Browser{
		RemoteSession: NewRemoteSession(wd, s.selectors),
		ID:            uuid.NewString(),
	}

	if s.cfg.MinBrowserVersion != "" {
		if err := b.RequireVersion(s.cfg.MinBrowserVersion); err != nil {
			b.quitAfter(err)
			return nil, err
		}
	}
	if err := b.Navigate(s.cfg.BaseURL); err != nil {
		b.quitAfter(err)
		return nil, fmt.Errorf("loading %s: %w", s.cfg.BaseURL, err)
	}
	glog.Infof("Session %s: browser %s, base URL %s", b.ID, s.cfg.Browser, s.cfg.BaseURL)
	return b, nil
}

func (b *Browser) quitAfter(cause error) {
	if err := b.Quit(); err != nil {
		glog.Warningf("Session %s: quit after %v failed: %v", b.ID, cause, err)
	}
}

var userAgentVersion = regexp.MustCompile(`(?:Chrome|Chromium|Firefox)/(\d+(?:\.\d+)*)`)

// BrowserVersion returns the version of the browser, read from its user
// agent. Only the first three components are kept.
func (s *RemoteSession) BrowserVersion() (semver.Version, error) {
	v, err := s.wd.ExecuteScript("return navigator.userAgent;", nil)
	if err != nil {
		return semver.Version{}, err
	}
	ua, _ := v.(string)
	return parseUserAgentVersion(ua)
}

func parseUserAgentVersion(ua string) (semver.Version, error) {
	m := userAgentVersion.FindStringSubmatch(ua)
	if m == nil {
		return semver.Version{}, fmt.Errorf("no browser version in user agent %q", ua)
	}
	parts := strings.Split(m[1], ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return semver.ParseTolerant(strings.Join(parts, "."))
}

// RequireVersion fails if the browser is older than min.
func (s *RemoteSession) RequireVersion(min string) error {
	want, err := semver.ParseTolerant(min)
	if err != nil {
		return fmt.Errorf("invalid minimum browser version %q: %w", min, err)
	}
	got, err := s.BrowserVersion()
	if err != nil {
		return err
	}
	if got.LT(want) {
		return fmt.Errorf("browser version %s is older than the required %s", got, want)
	}
	return nil
}

func pickUnusedPort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
