// Binary fetchdrivers downloads the browsers and WebDriver binaries the
// browser tests of the suite run against.
package main

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/wanmail/xyzbank/internal/download"
)

const (
	// desiredChromeBuild is the known build of Chromium to download from the
	// chromium-browser-snapshots/Linux_x64 bucket, together with its
	// ChromeDriver.
	//
	// Update this periodically.
	desiredChromeBuild = "1300313"

	// desiredFirefoxVersion is the known version of Firefox to download.
	//
	// Update this periodically.
	desiredFirefoxVersion = "128.0"
)

var (
	directory        = flag.String("dir", "drivers", "The directory to download the files to.")
	downloadBrowsers = flag.Bool("download_browsers", true, "If true, download the Firefox and Chrome browsers.")
	downloadLatest   = flag.Bool("download_latest", false, "If true, download the latest versions.")
	firefox          = flag.Bool("firefox", false, "If true, also download Firefox and GeckoDriver.")
)

func main() {
	flag.Parse()
	ctx := context.Background()
	f := &download.Fetcher{}

	chromeBuild, firefoxVersion := desiredChromeBuild, desiredFirefoxVersion
	if *downloadLatest {
		chromeBuild, firefoxVersion = "", ""
	}

	var files []download.File
	chrome, err := f.ChromeSnapshotFiles(ctx, chromeBuild)
	if err != nil {
		glog.Exitf("Unable to find Chromium and ChromeDriver: %v", err)
	}
	files = append(files, chrome...)

	if *firefox {
		gecko, err := f.GeckoDriverFile(ctx)
		if err != nil {
			glog.Exitf("Unable to find the latest GeckoDriver: %v", err)
		}
		files = append(files, gecko, download.FirefoxFile(firefoxVersion))
	}

	var selected []download.File
	for _, file := range files {
		if file.Browser && !*downloadBrowsers {
			glog.Infof("Skipping %q because --download_browsers is not set.", file.Name)
			continue
		}
		selected = append(selected, file)
	}
	if err := f.DownloadAll(ctx, selected, *directory); err != nil {
		glog.Exit(err)
	}
	glog.Infof("Downloaded %d file(s) to %s", len(selected), *directory)
}
