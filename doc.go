/*
Package xyzbank drives the manager view of the "XYZ Bank" AngularJS demo
application through a real browser and exposes the narrow surface the
regression suite is written against.

The suite never talks to WebDriver directly. It sees three small interfaces:

	Session  - navigation, the currently open JavaScript dialog, teardown.
	Locator  - symbolic element name to zero or more live Element handles.
	Element  - visibility, clickability, click, text entry, text, table cells.

RemoteSession implements Session and Locator on top of
github.com/tebeka/selenium, using the XPath/CSS selectors in
BankManagerSelectors. Service starts the WebDriver process (ChromeDriver or
GeckoDriver) and hands out one independent Browser per scenario:

	cfg, err := config.Load("config.yaml")
	if err != nil {
		glog.Exit(err)
	}
	svc, err := xyzbank.StartService(cfg, xyzbank.Output(os.Stderr))
	if err != nil {
		glog.Exit(err)
	}
	defer svc.Stop()

	b, err := svc.NewSession()
	if err != nil {
		glog.Exit(err)
	}
	defer b.Quit()

	gate := wait.New(b, b, cfg.ExplicitWait, wait.WithInterval(cfg.PollInterval))
	m := page.NewManager(b, b, gate)
	if err := m.Open(cfg.BaseURL); err != nil {
		glog.Exit(err)
	}
	if err := m.OpenCustomers(); err != nil {
		glog.Exit(err)
	}
	names, err := m.CustomerNames()

Every interaction in package page goes through a wait.Gate first; the
selection rule for deletion targets lives in package customer, the
synthetic input data in package namegen.
*/
package xyzbank
