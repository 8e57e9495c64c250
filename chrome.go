package xyzbank

import (
	"path/filepath"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
	"github.com/tebeka/selenium/log"

	"github.com/wanmail/xyzbank/config"
)

// ChromeArgs are passed to every Chrome instance, in addition to the
// ChromeDriver-supplied ones. --no-sandbox is needed for Chrome binaries that
// are not the default installation; the sandbox requires a setuid binary.
var ChromeArgs = []string{
	"--start-maximized",
	"--disable-notifications",
	"--remote-allow-origins=*",
	"--no-sandbox",
	"--disable-dev-shm-usage",
}

// NewCapabilities returns the desired capabilities for a session of the
// browser selected by cfg. Browser console logging is always enabled so that
// failed scenarios can dump it.
func NewCapabilities(cfg config.Config) selenium.Capabilities {
	caps := selenium.Capabilities{
		"browserName": cfg.Browser,
	}
	switch cfg.Browser {
	case "firefox":
		f := firefox.Capabilities{}
		if cfg.BrowserPath != "" {
			f.Binary = absPath(cfg.BrowserPath)
		}
		if cfg.Headless {
			f.Args = append(f.Args, "-headless")
		}
		caps.AddFirefox(f)
	default:
		c := chrome.Capabilities{
			Args: append([]string(nil), ChromeArgs...),
			W3C:  true,
		}
		if cfg.BrowserPath != "" {
			c.Path = absPath(cfg.BrowserPath)
		}
		if cfg.Headless {
			c.Args = append([]string{"--headless"}, c.Args...)
		}
		caps.AddChrome(c)
	}
	caps.SetLogLevel(log.Browser, log.All)
	return caps
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
