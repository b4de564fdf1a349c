// Package fs provides a file-backed configuration source.
//
// The file is optional: when it does not exist the source is simply empty,
// so a missing local.properties never prevents fallback to lower-priority
// sources or to the default.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/agriguard/kasane/format"
	"github.com/agriguard/kasane/source"
	"github.com/agriguard/kasane/types"
	"github.com/agriguard/kasane/watcher"
)

var (
	userHomeDir = os.UserHomeDir
	osReadFile  = os.ReadFile
	osStat      = os.Stat
	newWatcher  = fsnotify.NewWatcher
)

// Source looks up keys in a local file.
//
// The file is read and parsed on the first lookup and cached afterwards.
// Reload drops the cache. Source is safe for concurrent use.
type Source struct {
	name        string
	path        string
	searchPaths []string
	parser      format.Parser

	mu           sync.Mutex
	loaded       bool
	exists       bool
	values       map[string]string
	resolvedPath string
}

// Ensure Source implements the source.Source interface.
var _ source.Source = (*Source)(nil)

// Ensure Source implements the watcher.Subscriber interface.
var _ watcher.Subscriber = (*Source)(nil)

// Option configures a Source.
type Option func(*Source)

// WithName sets the name used in diagnostics. Default is the primary path.
func WithName(name string) Option {
	return func(s *Source) {
		s.name = name
	}
}

// WithParser sets the parser explicitly instead of choosing one by file
// extension.
func WithParser(p format.Parser) Option {
	return func(s *Source) {
		s.parser = p
	}
}

// WithSearchPaths adds additional paths to search for the file.
// Files are searched in order: primary path first, then search paths.
// The first existing file is used.
func WithSearchPaths(paths ...string) Option {
	return func(s *Source) {
		s.searchPaths = append(s.searchPaths, paths...)
	}
}

// New creates a source that reads from a file.
// The path can be absolute or relative. Tilde (~) expansion is supported.
//
// Example:
//
//	src := fs.New("android/local.properties")
//	src := fs.New("~/.config/agri-guard/keys.yaml", fs.WithName("user"))
//	src := fs.New("keys.txt", fs.WithParser(properties.New()))
func New(path string, opts ...Option) *Source {
	s := &Source{
		name: path,
		path: path,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the source name.
func (s *Source) Name() string {
	return s.name
}

// Type returns the source type identifier.
func (s *Source) Type() source.SourceType {
	return source.TypeFS
}

// Path returns the primary path as given to New.
func (s *Source) Path() string {
	return s.path
}

// FillDetails implements types.DetailsFiller.
func (s *Source) FillDetails(d *types.Details) {
	d.Path = s.ResolvedPath()
	d.Watchable = true
	if s.parser != nil {
		d.Format = s.parser.Format()
	} else if p, err := format.ForPath(d.Path); err == nil {
		d.Format = p.Format()
	}
}

// Lookup implements the source.Source interface.
//
// A missing file yields ok=false for every key. A file that exists but cannot
// be read or parsed yields an *source.AccessError; the failed load is not
// cached, so a later lookup retries.
func (s *Source) Lookup(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.loadLocked(); err != nil {
			return "", false, source.Access(s.name, key, err)
		}
	}

	v, ok := s.values[key]
	return v, ok, nil
}

// Exists reports whether a backing file was found by the last load.
// It loads the file if it has not been loaded yet.
func (s *Source) Exists() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.loadLocked(); err != nil {
			return false, err
		}
	}
	return s.exists, nil
}

// Reload drops the cached content. The file is read again on the next lookup.
func (s *Source) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	s.exists = false
	s.values = nil
	s.resolvedPath = ""
}

// loadLocked reads and parses the file. Caller must hold s.mu.
func (s *Source) loadLocked() error {
	resolvedPath, found, err := s.resolvePath()
	if err != nil {
		return err
	}

	if !found {
		s.resolvedPath = resolvedPath
		s.values = map[string]string{}
		s.exists = false
		s.loaded = true
		return nil
	}

	data, err := osReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			// Removed between stat and read.
			s.resolvedPath = resolvedPath
			s.values = map[string]string{}
			s.exists = false
			s.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read file %q: %w", resolvedPath, err)
	}

	p := s.parser
	if p == nil {
		p, err = format.ForPath(resolvedPath)
		if err != nil {
			return err
		}
	}

	values, err := p.Parse(data)
	if err != nil {
		return fmt.Errorf("file %q: %w", resolvedPath, err)
	}

	s.resolvedPath = resolvedPath
	s.values = values
	s.exists = true
	s.loaded = true
	return nil
}

// ResolvedPath returns the file path in use after resolution.
// This may differ from Path() if a search path was used.
// Returns the expanded primary path if no file has been loaded yet.
func (s *Source) ResolvedPath() string {
	s.mu.Lock()
	resolved := s.resolvedPath
	s.mu.Unlock()

	if resolved != "" {
		return resolved
	}
	expanded, err := expandTilde(s.path)
	if err != nil {
		return s.path
	}
	return expanded
}

// resolvePath finds the first existing file among the primary path and the
// search paths. If none exists, it returns the expanded primary path with
// found=false. A stat failure other than "not exist" is reported, since the
// file may be there but unreadable.
func (s *Source) resolvePath() (path string, found bool, err error) {
	allPaths := make([]string, 0, 1+len(s.searchPaths))
	allPaths = append(allPaths, s.path)
	allPaths = append(allPaths, s.searchPaths...)

	for _, p := range allPaths {
		expanded, err := expandTilde(p)
		if err != nil {
			continue
		}
		_, statErr := osStat(expanded)
		if statErr == nil {
			return expanded, true, nil
		}
		if !errors.Is(statErr, iofs.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", expanded, statErr)
		}
	}

	expanded, err := expandTilde(s.path)
	if err != nil {
		return "", false, fmt.Errorf("failed to expand path %q: %w", s.path, err)
	}
	return expanded, false, nil
}

// expandTilde expands tilde (~) in the path.
// Handles both "~" (home directory) and "~/path" (path under home).
func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory: %w", err)
	}

	if len(path) == 1 {
		return homeDir, nil
	}

	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:]), nil
	}

	// "~something" is not a home expansion.
	return path, nil
}

// Subscribe implements the watcher.Subscriber interface.
// It watches the directory containing the file and calls notify when the file
// is written, created, renamed or removed. The cache is dropped before notify
// runs, so a lookup from the callback sees the new content.
//
// Watching the directory rather than the file handles editors that save via
// temp file + rename, and files that do not exist yet.
func (s *Source) Subscribe(ctx context.Context, notify watcher.NotifyFunc) (watcher.StopFunc, error) {
	w, err := newWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	path := s.ResolvedPath()
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}

	filename := filepath.Base(path)

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					s.Reload()
					notify(nil)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				notify(err)
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func(ctx context.Context) error {
		return w.Close()
	}
	return stop, nil
}
