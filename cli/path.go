package cli

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ardnew/stencil/pkg"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config"

// configExt is the extension of the configuration file.
const configExt = ".yaml"

var defaultDirMode os.FileMode = 0o700

// basePrefix returns the name used for the configuration and cache
// directories.
//
// It is the base name of the executable without extension, except:
//   - "__debug_bin<N>" (dlv default output) is replaced with [pkg.Name]
//   - leading dots are removed
var basePrefix = sync.OnceValue(
	func() string {
		id := os.Args[0]
		if exe, err := os.Executable(); err == nil {
			id = exe
		}

		id = filepath.Base(id)
		id = strings.TrimSuffix(id, filepath.Ext(id))

		for _, sub := range []struct {
			rex *regexp.Regexp
			rep string
		}{
			{regexp.MustCompile(`^__debug_bin\d+$`), pkg.Name},
			{regexp.MustCompile(`^\.+`), ""},
		} {
			id = sub.rex.ReplaceAllString(id, sub.rep)
		}

		if id == "" {
			return pkg.Name
		}

		return id
	},
)

// userDir returns the per-user directory reported by primary, falling back
// to fallback under the home directory, then the working directory.
func userDir(primary func() (string, error), fallback string) string {
	dir, err := primary()
	if err != nil {
		if dir, err = os.UserHomeDir(); err == nil {
			dir = filepath.Join(dir, fallback)
		} else if dir, err = os.Getwd(); err != nil {
			dir = "."
		}
	}

	return filepath.Join(dir, basePrefix())
}

var configDir = sync.OnceValue(
	func() string { return userDir(os.UserConfigDir, ".config") },
)

var cacheDir = sync.OnceValue(
	func() string { return userDir(os.UserCacheDir, ".cache") },
)

// configPath joins elem onto the configuration directory.
func configPath(elem ...string) string {
	return filepath.Join(append([]string{configDir()}, elem...)...)
}

// cachePath joins elem onto the cache directory.
func cachePath(elem ...string) string {
	return filepath.Join(append([]string{cacheDir()}, elem...)...)
}

// mkdirAllRequired creates the configuration and cache directories.
func mkdirAllRequired() error {
	for _, dir := range []string{configDir(), cacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return pkg.ErrConfigDir.Wrap(err)
		}
	}

	return nil
}
