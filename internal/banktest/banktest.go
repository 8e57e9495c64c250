// Package banktest holds the regression scenarios of the XYZ Bank manager
// view. They are in a separate package so that they can run against any
// implementation of xyzbank.Session and xyzbank.Locator: a real browser or
// the in-memory fakebank.
package banktest

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"

	"github.com/wanmail/xyzbank"
	"github.com/wanmail/xyzbank/customer"
	"github.com/wanmail/xyzbank/namegen"
	"github.com/wanmail/xyzbank/page"
	"github.com/wanmail/xyzbank/wait"
)

// Env is the application one scenario runs against. It must not be shared
// with other scenarios.
type Env struct {
	Session xyzbank.Session
	Locator xyzbank.Locator
	// BaseURL is the manager view.
	BaseURL string
	// Timeout bounds every wait.
	Timeout time.Duration
	// Interval is the delay between polls; zero means wait.DefaultInterval.
	Interval time.Duration
	// Clock, if set, replaces the real clock of the gate.
	Clock clock.Clock
}

// Config selects how the scenarios are run.
type Config struct {
	// Open returns a fresh Env. The scenario quits the session when done.
	Open func(t *testing.T) Env
	// Parallel runs the scenarios concurrently.
	Parallel bool
	// ArtifactDir, if set, receives a screenshot and the browser log of
	// every failed scenario whose session can provide them.
	ArtifactDir string
	// Seed seeds the test data generator; zero picks a random seed.
	Seed int64
}

type scenario struct {
	env   Env
	page  *page.Manager
	names *namegen.Generator
}

func runTest(f func(*testing.T, *scenario), c Config) func(*testing.T) {
	return func(t *testing.T) {
		if c.Parallel {
			t.Parallel()
		}
		env := c.Open(t)
		t.Cleanup(func() {
			if err := env.Session.Quit(); err != nil {
				t.Errorf("Quit() returned error: %v", err)
			}
		})
		if c.ArtifactDir != "" {
			// Runs before Quit.
			t.Cleanup(func() {
				if t.Failed() {
					saveArtifacts(t, c.ArtifactDir, env.Session)
				}
			})
		}

		opts := []wait.Option{wait.WithInterval(env.Interval)}
		if env.Clock != nil {
			opts = append(opts, wait.WithClock(env.Clock))
		}
		gate := wait.New(env.Session, env.Locator, env.Timeout, opts...)
		names := namegen.NewRandom()
		if c.Seed != 0 {
			names = namegen.New(c.Seed)
		}
		s := &scenario{env: env, page: page.NewManager(env.Session, env.Locator, gate), names: names}
		require.NoError(t, s.page.Open(env.BaseURL), "opening the manager view")
		f(t, s)
	}
}

// RunScenarios runs every scenario as a subtest of t.
func RunScenarios(t *testing.T, c Config) {
	t.Run("CreateCustomer", runTest(testCreateCustomer, c))
	t.Run("CreateCustomerFromPostCode", runTest(testCreateCustomerFromPostCode, c))
	t.Run("DuplicateCustomer", runTest(testDuplicateCustomer, c))
	t.Run("SortByFirstName", runTest(testSortByFirstName, c))
	t.Run("DeleteByAverageNameLength", runTest(testDeleteByAverageNameLength, c))
}

func (s *scenario) addCustomer(t *testing.T, first, last, postCode string) {
	t.Helper()
	text, err := s.page.AddCustomer(first, last, postCode)
	require.NoError(t, err, "adding customer %s %s", first, last)
	assert.True(t, strings.HasPrefix(text, xyzbank.AddedAlertPrefix), "dialog text %q", text)
}

func (s *scenario) customerNames(t *testing.T) []string {
	t.Helper()
	names, err := s.page.CustomerNames()
	require.NoError(t, err)
	return names
}

func testCreateCustomer(t *testing.T, s *scenario) {
	first := s.names.AlphanumericName(namegen.DefaultNameLength)
	last := s.names.AlphanumericName(namegen.DefaultNameLength)
	s.addCustomer(t, first, last, s.names.PostCode())

	require.NoError(t, s.page.OpenCustomers())
	assert.Contains(t, s.customerNames(t), first)
}

// postCodeFixture is the post code of the derived-name scenario.
const postCodeFixture = "0000000001"

func testCreateCustomerFromPostCode(t *testing.T, s *scenario) {
	first, err := namegen.NameFromPostCode(postCodeFixture)
	require.NoError(t, err)
	require.Equal(t, "aaaab", first)
	last := s.names.AlphanumericName(namegen.DefaultNameLength)
	s.addCustomer(t, first, last, postCodeFixture)

	require.NoError(t, s.page.OpenCustomers())
	present, err := s.page.IsCustomerPresent(first)
	require.NoError(t, err)
	assert.True(t, present, "customer %q not in the table", first)
}

func testDuplicateCustomer(t *testing.T, s *scenario) {
	first := s.names.AlphanumericName(namegen.DefaultNameLength)
	last := s.names.AlphanumericName(namegen.DefaultNameLength)
	s.addCustomer(t, first, last, s.names.PostCode())

	text, err := s.page.AddCustomer(first, last, s.names.PostCode())
	require.NoError(t, err)
	assert.Equal(t, xyzbank.DuplicateAlert, text)

	require.NoError(t, s.page.OpenCustomers())
	count := 0
	for _, n := range s.customerNames(t) {
		if n == first {
			count++
		}
	}
	assert.Equal(t, 1, count, "customers named %q", first)
}

func sortedFold(names []string, descending bool) bool {
	return sort.SliceIsSorted(names, func(i, j int) bool {
		a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
		if descending {
			return a > b
		}
		return a < b
	})
}

func testSortByFirstName(t *testing.T, s *scenario) {
	require.NoError(t, s.page.OpenCustomers())
	before := s.customerNames(t)

	require.NoError(t, s.page.SortByFirstName())
	after := s.customerNames(t)
	assert.ElementsMatch(t, before, after, "sorting changed the set of customers")
	assert.True(t, sortedFold(after, true), "first click: %q is not in descending order", after)

	require.NoError(t, s.page.SortByFirstName())
	again := s.customerNames(t)
	assert.ElementsMatch(t, before, again, "sorting changed the set of customers")
	assert.True(t, sortedFold(again, false), "second click: %q is not in ascending order", again)
}

func testDeleteByAverageNameLength(t *testing.T, s *scenario) {
	require.NoError(t, s.page.OpenCustomers())
	before := s.customerNames(t)
	if len(before) == 0 {
		t.Skip("no customers to delete")
	}
	candidates, err := customer.SelectDeletionCandidates(before)
	require.NoError(t, err)
	t.Logf("deleting %q of %q", candidates, before)

	for _, name := range candidates {
		require.NoError(t, s.page.DeleteCustomer(name), "deleting %q", name)
	}

	after := s.customerNames(t)
	assert.Len(t, after, len(before)-len(candidates))
	for _, name := range candidates {
		assert.NotContains(t, after, name)
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// artifactSource is implemented by sessions backed by a real browser.
type artifactSource interface {
	Screenshot() ([]byte, error)
	BrowserLog() (string, error)
}

func saveArtifacts(t *testing.T, dir string, session xyzbank.Session) {
	src, ok := session.(artifactSource)
	if !ok {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Logf("creating artifact directory %q: %v", dir, err)
		return
	}
	base := filepath.Join(dir, unsafeChars.ReplaceAllString(t.Name(), "_")+"-"+uuid.NewString())
	if png, err := src.Screenshot(); err != nil {
		glog.Warningf("%s: screenshot failed: %v", t.Name(), err)
	} else if err := os.WriteFile(base+".png", png, 0o644); err != nil {
		glog.Warningf("%s: writing screenshot: %v", t.Name(), err)
	} else {
		t.Logf("screenshot saved to %s.png", base)
	}
	if log, err := src.BrowserLog(); err != nil {
		glog.Warningf("%s: browser log unavailable: %v", t.Name(), err)
	} else if err := os.WriteFile(base+".log", []byte(log), 0o644); err != nil {
		glog.Warningf("%s: writing browser log: %v", t.Name(), err)
	} else {
		t.Logf("browser log saved to %s.log", base)
	}
}
