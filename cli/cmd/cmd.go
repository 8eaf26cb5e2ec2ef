package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/stencil/pkg"
)

type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// output returns the writers of the running kong application, or the
// process streams outside of one.
func output(ctx context.Context) (stdout, stderr io.Writer) {
	if ktx := kongContextFrom(ctx); ktx != nil {
		return ktx.Stdout, ktx.Stderr
	}

	return os.Stdout, os.Stderr
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// source is one template input.
type source struct {
	name string
	io.ReadCloser
}

// fileKey uniquely identifies a file by its device and inode numbers, so
// the same file named through a symlink or a relative path is read once.
type fileKey struct {
	dev uint64
	ino uint64
}

// openSources opens each path once, in order. Every "-" is replaced by a
// single stdin source placed last. With no paths, stdin is the only source.
// The caller closes the returned sources.
func openSources(paths []string, stdin io.Reader) ([]source, error) {
	if len(paths) == 0 {
		paths = []string{stdinSource}
	}

	var (
		srcs     = make([]source, 0, len(paths))
		seen     = make(map[fileKey]struct{})
		hasStdin bool
	)

	for _, path := range paths {
		if path == stdinSource {
			hasStdin = true

			continue
		}

		src, ok, err := openUnique(path, seen)
		if err != nil {
			closeSources(srcs)

			return nil, err
		}

		if ok {
			srcs = append(srcs, src)
		}
	}

	if hasStdin {
		srcs = append(srcs, source{name: "", ReadCloser: io.NopCloser(stdin)})
	}

	return srcs, nil
}

// openUnique opens path unless a file with the same device and inode was
// already opened.
func openUnique(path string, seen map[fileKey]struct{}) (source, bool, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return source{}, false, pkg.ErrReadInput.Wrap(err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return source{}, false, pkg.ErrReadInput.Wrap(err)
	}

	if key, ok := makeFileKey(info); ok {
		if _, dup := seen[key]; dup {
			return source{}, false, nil
		}

		seen[key] = struct{}{}
	}

	file, err := os.Open(resolved)
	if err != nil {
		return source{}, false, pkg.ErrReadInput.Wrap(err)
	}

	return source{name: path, ReadCloser: file}, true, nil
}

func closeSources(srcs []source) {
	for _, s := range srcs {
		_ = s.Close()
	}
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true //nolint:unconvert
}

// loadData reads the YAML (or JSON) document at path as template globals.
// An empty path yields nil.
func loadData(ctx context.Context, path string) (map[string]any, error) {
	if path == "" {
		return nil, nil //nolint:nilnil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, pkg.ErrReadInput.Wrap(err)
	}

	var data map[string]any

	if err := yaml.UnmarshalContext(ctx, b, &data); err != nil {
		return nil, pkg.ErrDecodeData.Wrapf("%s: %w", path, err)
	}

	return data, nil
}
