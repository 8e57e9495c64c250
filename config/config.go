// Package config holds the settings of a suite run. A Config is built once at
// process start and handed to every collaborator that needs it.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultBaseURL is the manager view of the public XYZ Bank demo.
const DefaultBaseURL = "https://www.globalsqa.com/angularJs-protractor/BankingProject/#/manager"

// Keys recognized in a configuration file, as dotted paths into nested YAML
// maps: KeyExplicitWait is written "explicit: {wait: {time: 10}}".
const (
	KeyHeadless          = "headless"
	KeyExplicitWait      = "explicit.wait.time"
	KeyBaseURL           = "base.url"
	KeyBrowser           = "browser.name"
	KeyBrowserPath       = "browser.path"
	KeyMinBrowserVersion = "browser.min.version"
	KeyDriverPath        = "driver.path"
	KeyDriverURL         = "driver.url"
	KeyDriverPort        = "driver.port"
	KeyPollInterval      = "poll.interval"
	KeyFrameBuffer       = "frame.buffer"
	KeyScreenSize        = "screen.size"
	KeyArtifactDir       = "artifact.dir"
	KeyDebug             = "debug"
)

// Config configures the browser session and the synchronization gate.
type Config struct {
	// Headless runs the browser without a window.
	Headless bool
	// ExplicitWait bounds every wait of the synchronization gate.
	ExplicitWait time.Duration `validate:"gt=0"`
	// BaseURL is the page each scenario starts from.
	BaseURL string `validate:"required,url"`

	// Browser is "chrome" or "firefox".
	Browser string `validate:"oneof=chrome firefox"`
	// BrowserPath is the browser binary; empty means the driver's default.
	BrowserPath string
	// MinBrowserVersion, if set, is the lowest acceptable browser version.
	MinBrowserVersion string `validate:"omitempty,semver|numeric"`

	// DriverPath is the ChromeDriver or GeckoDriver binary to start.
	DriverPath string
	// DriverURL is the URL of an already running WebDriver server (a Selenium
	// Grid, for instance). When set, no driver process is started.
	DriverURL string `validate:"omitempty,url"`
	// DriverPort is the port for a started driver; 0 picks an unused one.
	DriverPort int `validate:"gte=0,lte=65535"`

	// PollInterval is the delay between two evaluations of a wait condition.
	PollInterval time.Duration `validate:"gt=0"`
	// FrameBuffer starts the driver inside an Xvfb virtual display.
	FrameBuffer bool
	// ScreenSize is the Xvfb screen geometry, "{width}x{height}x{depth}".
	ScreenSize string
	// ArtifactDir receives screenshots and browser logs of failed scenarios.
	ArtifactDir string

	// Debug turns on WebDriver wire logging.
	Debug bool
}

// Default returns the configuration used when no file overrides a key.
func Default() Config {
	return Config{
		Headless:     true,
		ExplicitWait: 10 * time.Second,
		BaseURL:      DefaultBaseURL,
		Browser:      "chrome",
		PollInterval: 100 * time.Millisecond,
	}
}

// Load reads the YAML file at path on top of Default and validates the
// result.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("failed to load config from %q: %w", path, err)
	}
	c, err := FromKoanf(k)
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return c, nil
}

// FromKoanf builds a Config from the keys present in k, falling back to
// Default for the others, and validates it.
func FromKoanf(k *koanf.Koanf) (Config, error) {
	c := Default()
	if k.Exists(KeyHeadless) {
		c.Headless = k.Bool(KeyHeadless)
	}
	if k.Exists(KeyExplicitWait) {
		d, err := ParseSeconds(k.String(KeyExplicitWait))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", KeyExplicitWait, err)
		}
		c.ExplicitWait = d
	}
	if k.Exists(KeyPollInterval) {
		d, err := time.ParseDuration(k.String(KeyPollInterval))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", KeyPollInterval, err)
		}
		c.PollInterval = d
	}
	setString := func(key string, dst *string) {
		if k.Exists(key) {
			*dst = strings.TrimSpace(k.String(key))
		}
	}
	setString(KeyBaseURL, &c.BaseURL)
	setString(KeyBrowser, &c.Browser)
	setString(KeyBrowserPath, &c.BrowserPath)
	setString(KeyMinBrowserVersion, &c.MinBrowserVersion)
	setString(KeyDriverPath, &c.DriverPath)
	setString(KeyDriverURL, &c.DriverURL)
	setString(KeyScreenSize, &c.ScreenSize)
	setString(KeyArtifactDir, &c.ArtifactDir)
	if k.Exists(KeyDriverPort) {
		c.DriverPort = k.Int(KeyDriverPort)
	}
	if k.Exists(KeyFrameBuffer) {
		c.FrameBuffer = k.Bool(KeyFrameBuffer)
	}
	if k.Exists(KeyDebug) {
		c.Debug = k.Bool(KeyDebug)
	}
	c.Browser = strings.ToLower(c.Browser)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ParseSeconds parses a wait bound. A bare integer is a number of seconds,
// anything else must be a Go duration such as "1500ms".
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid wait %q: want seconds or a duration", s)
	}
	return d, nil
}

var validate = validator.New()

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q check (value %v)", fe.Field(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
