// Package download fetches the browsers and WebDriver binaries the browser
// tests run against.
package download

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/golang/glog"
	"github.com/google/go-github/v65/github"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

// File describes how to download a file from the Web.
type File struct {
	URL  string
	Name string
	// Hash is the hex encoded digest of the file, if known.
	Hash     string
	HashType string // default is sha256
	// Rename, if set, moves Rename[0] to Rename[1] after unpacking.
	Rename []string
	// Browser is set for browser archives, as opposed to drivers.
	Browser bool
}

// Path returns where f is stored in directory.
func (f File) Path(directory string) string {
	return filepath.Join(directory, f.Name)
}

const (
	// Bucket URL: https://console.cloud.google.com/storage/browser/chromium-browser-snapshots
	snapshotBucket       = "chromium-browser-snapshots"
	snapshotPrefix       = "Linux_x64"
	chromeFilename       = "chrome-linux.zip"
	chromeDriverFilename = "chromedriver_linux64.zip"
)

// Fetcher resolves which files to download. The zero value uses
// unauthenticated default clients.
type Fetcher struct {
	Storage *storage.Client
	GitHub  *github.Client
	HTTP    *http.Client
}

func (f *Fetcher) httpClient() *http.Client {
	if f.HTTP != nil {
		return f.HTTP
	}
	return http.DefaultClient
}

func (f *Fetcher) storageClient(ctx context.Context) (*storage.Client, error) {
	if f.Storage != nil {
		return f.Storage, nil
	}
	c, err := storage.NewClient(ctx, option.WithHTTPClient(f.httpClient()))
	if err != nil {
		return nil, fmt.Errorf("cannot create a storage client for downloading the chrome browser: %w", err)
	}
	f.Storage = c
	return c, nil
}

// ChromeSnapshotFiles returns Chromium and the matching ChromeDriver of the
// given snapshot build. An empty build selects the latest one.
func (f *Fetcher) ChromeSnapshotFiles(ctx context.Context, build string) ([]File, error) {
	client, err := f.storageClient(ctx)
	if err != nil {
		return nil, err
	}
	gcsPath := fmt.Sprintf("gs://%s/", snapshotBucket)
	bkt := client.Bucket(snapshotBucket)
	if build == "" {
		lastChange := path.Join(snapshotPrefix, "LAST_CHANGE")
		r, err := bkt.Object(lastChange).NewReader(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot create a reader for %s%s file: %w", gcsPath, lastChange, err)
		}
		defer r.Close()
		// The file holds the directory name of the latest build.
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("cannot read from %s%s file: %w", gcsPath, lastChange, err)
		}
		build = strings.TrimSpace(string(data))
	}

	var files []File
	for _, name := range []string{chromeFilename, chromeDriverFilename} {
		obj := path.Join(snapshotPrefix, build, name)
		attrs, err := bkt.Object(obj).Attrs(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot get the attrs of %s%s: %w", gcsPath, obj, err)
		}
		files = append(files, File{
			URL:      attrs.MediaLink,
			Name:     name,
			Hash:     hex.EncodeToString(attrs.MD5),
			HashType: "md5",
			Browser:  name == chromeFilename,
		})
	}
	glog.Infof("Using Chromium snapshot %s", build)
	return files, nil
}

// LatestGitHubRelease returns the asset of the latest release of
// owner/repo whose name matches assetName, to be stored as localName.
func (f *Fetcher) LatestGitHubRelease(ctx context.Context, owner, repo, assetName, localName string) (File, error) {
	client := f.GitHub
	if client == nil {
		client = github.NewClient(f.httpClient())
	}
	assetNameRE, err := regexp.Compile(assetName)
	if err != nil {
		return File{}, fmt.Errorf("invalid asset name regular expression %q: %w", assetName, err)
	}
	rel, _, err := client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return File{}, err
	}
	for _, a := range rel.Assets {
		if !assetNameRE.MatchString(a.GetName()) {
			continue
		}
		u := a.GetBrowserDownloadURL()
		if u == "" {
			return File{}, fmt.Errorf("%s does not have a download URL", a.GetName())
		}
		glog.Infof("Using %s/%s release %s", owner, repo, rel.GetTagName())
		return File{URL: u, Name: localName}, nil
	}
	return File{}, fmt.Errorf("release for %s not found at https://github.com/%s/%s/releases", assetName, owner, repo)
}

// GeckoDriverFile returns the latest linux64 GeckoDriver release.
func (f *Fetcher) GeckoDriverFile(ctx context.Context) (File, error) {
	return f.LatestGitHubRelease(ctx, "mozilla", "geckodriver", `geckodriver-.*linux64\.tar\.gz$`, "geckodriver.tar.gz")
}

// FirefoxFile returns the given Firefox release, or the latest nightly if
// version is empty.
func FirefoxFile(version string) File {
	if version == "" {
		return File{
			URL:     "https://download.mozilla.org/?product=firefox-nightly-latest-ssl&os=linux64&lang=en-US",
			Name:    "firefox-nightly.tar.bz2",
			Browser: true,
		}
	}
	v := url.PathEscape(version)
	return File{
		URL:     "https://download-installer.cdn.mozilla.net/pub/firefox/releases/" + v + "/linux-x86_64/en-US/firefox-" + v + ".tar.bz2",
		Name:    "firefox.tar.bz2",
		Browser: true,
	}
}

// Download fetches file into directory unless a copy with the expected
// hash is already there, then unpacks it.
func (f *Fetcher) Download(ctx context.Context, file File, directory string) error {
	if file.Hash != "" && fileSameHash(file, directory) {
		glog.Infof("Skipping file %q which has already been downloaded.", file.Name)
	} else {
		glog.Infof("Downloading %q from %q", file.Name, file.URL)
		if err := f.downloadFile(ctx, file, directory); err != nil {
			return err
		}
	}

	if err := unpack(file, directory); err != nil {
		return err
	}

	if rename := file.Rename; len(rename) == 2 {
		from := filepath.Join(directory, rename[0])
		to := filepath.Join(directory, rename[1])
		glog.Infof("Renaming %q to %q", from, to)
		os.RemoveAll(to) // Ignore error.
		if err := os.Rename(from, to); err != nil {
			glog.Warningf("Error renaming %q to %q: %v", from, to, err)
		}
	}
	return nil
}

// DownloadAll downloads files concurrently and returns the first error.
func (f *Fetcher) DownloadAll(ctx context.Context, files []File, directory string) error {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := f.Download(ctx, file, directory); err != nil {
				return fmt.Errorf("error handling %s: %w", file.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func newHash(hashType string) hash.Hash {
	switch strings.ToLower(hashType) {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	}
	return sha256.New()
}

func (f *Fetcher) downloadFile(ctx context.Context, file File, directory string) (err error) {
	p := file.Path(directory)
	out, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("error creating %q: %w", p, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("error closing %q: %w", p, closeErr)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return err
	}
	resp, err := f.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s: error downloading %q: %w", file.Name, file.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: error downloading %q: %s", file.Name, file.URL, resp.Status)
	}

	h := newHash(file.HashType)
	if _, err := io.Copy(io.MultiWriter(out, h), resp.Body); err != nil {
		return fmt.Errorf("%s: error downloading %q: %w", file.Name, file.URL, err)
	}
	if file.Hash == "" {
		return nil
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != file.Hash {
		return fmt.Errorf("%s: got %s hash %q, want %q", file.Name, file.HashType, sum, file.Hash)
	}
	return nil
}

func fileSameHash(file File, directory string) bool {
	in, err := os.Open(file.Path(directory))
	if err != nil {
		return false
	}
	defer in.Close()

	h := newHash(file.HashType)
	if _, err := io.Copy(h, in); err != nil {
		return false
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if sum != file.Hash {
		glog.Warningf("File %q: got hash %q, expect hash %q", file.Name, sum, file.Hash)
		return false
	}
	return true
}

// unpackCommand returns the command that extracts file into directory, or
// nil if file is not an archive.
func unpackCommand(file File, directory string) []string {
	switch path.Ext(file.Name) {
	case ".zip":
		return []string{"unzip", "-o", "-d", directory, file.Path(directory)}
	case ".gz":
		return []string{"tar", "-xzf", file.Path(directory), "-C", directory}
	case ".bz2":
		return []string{"tar", "-xjf", file.Path(directory), "-C", directory}
	}
	return nil
}

func unpack(file File, directory string) error {
	cmd := unpackCommand(file, directory)
	if cmd == nil {
		return nil
	}
	glog.Infof("Unpacking %q", file.Path(directory))
	if out, err := exec.Command(cmd[0], cmd[1:]...).CombinedOutput(); err != nil {
		return fmt.Errorf("error unpacking %q: %w: %s", file.Name, err, out)
	}
	return nil
}
