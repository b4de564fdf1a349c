// Package manifest substitutes resolved placeholders into build manifests.
//
// Placeholders use the ${NAME} form understood by Android manifest merging,
// for example:
//
//	<meta-data android:name="com.google.android.geo.API_KEY"
//	           android:value="${MAPS_API_KEY}"/>
//
// Names not present in the value map are left in the output untouched and
// reported, so that a later build step can still fill them in.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}`)

type tempFile interface {
	Write(p []byte) (n int, err error)
	Sync() error
	Close() error
	Name() string
}

var (
	osReadFile = os.ReadFile
	osMkdirAll = os.MkdirAll
	osChmod    = os.Chmod
	osRename   = os.Rename
	osRemove   = os.Remove

	createTemp = func(dir, pattern string) (tempFile, error) {
		return os.CreateTemp(dir, pattern)
	}
)

// Result describes a rendering.
type Result struct {
	// Text is the rendered manifest.
	Text string

	// Replaced lists the distinct placeholder names that were substituted,
	// in order of first appearance.
	Replaced []string

	// Unknown lists the distinct placeholder names with no value, in order of
	// first appearance. They remain verbatim in Text.
	Unknown []string
}

// Complete reports whether every placeholder in the input was substituted.
func (r Result) Complete() bool {
	return len(r.Unknown) == 0
}

// Names returns the distinct placeholder names referenced by text, in order
// of first appearance.
func Names(text string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// Render substitutes values into text. A name mapped to the empty string is
// substituted with the empty string.
func Render(text string, values map[string]string) Result {
	var res Result
	res.Text = placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]
		v, ok := values[name]
		if !ok {
			if !slices.Contains(res.Unknown, name) {
				res.Unknown = append(res.Unknown, name)
			}
			return match
		}
		if !slices.Contains(res.Replaced, name) {
			res.Replaced = append(res.Replaced, name)
		}
		return v
	})
	return res
}

// RenderFile renders the template at src and writes the result to dst.
// dst is replaced atomically via a temporary file in the same directory, so
// a concurrent build never observes a half-written manifest.
func RenderFile(src, dst string, values map[string]string, perm os.FileMode) (Result, error) {
	data, err := osReadFile(src)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read template %q: %w", src, err)
	}

	res := Render(string(data), values)
	if err := writeFile(dst, []byte(res.Text), perm); err != nil {
		return Result{}, err
	}
	return res, nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := osMkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}

	tmpFile, err := createTemp(dir, ".kasane-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			osRemove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temporary file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := osChmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := osRename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file to %q: %w", path, err)
	}

	success = true
	return nil
}
