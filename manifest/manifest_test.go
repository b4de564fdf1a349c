package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const template = `<manifest>
  <application android:label="${APP_LABEL}">
    <meta-data android:name="com.google.android.geo.API_KEY"
               android:value="${MAPS_API_KEY}"/>
    <meta-data android:name="flavor" android:value="${FLAVOR}"/>
    <meta-data android:name="key-again" android:value="${MAPS_API_KEY}"/>
  </application>
</manifest>
`

func TestNames(t *testing.T) {
	got := Names(template)
	want := []string{"APP_LABEL", "MAPS_API_KEY", "FLAVOR"}
	if !slices.Equal(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestRender(t *testing.T) {
	res := Render(template, map[string]string{
		"MAPS_API_KEY": "AIza-TEST-123",
		"APP_LABEL":    "",
	})

	want := `<manifest>
  <application android:label="">
    <meta-data android:name="com.google.android.geo.API_KEY"
               android:value="AIza-TEST-123"/>
    <meta-data android:name="flavor" android:value="${FLAVOR}"/>
    <meta-data android:name="key-again" android:value="AIza-TEST-123"/>
  </application>
</manifest>
`
	if res.Text != want {
		t.Errorf("Render() text =\n%s\nwant\n%s", res.Text, want)
	}
	if !slices.Equal(res.Replaced, []string{"APP_LABEL", "MAPS_API_KEY"}) {
		t.Errorf("Replaced = %v", res.Replaced)
	}
	if !slices.Equal(res.Unknown, []string{"FLAVOR"}) {
		t.Errorf("Unknown = %v", res.Unknown)
	}
	if res.Complete() {
		t.Error("Complete() = true with an unknown placeholder")
	}
}

func TestRender_NotPlaceholders(t *testing.T) {
	in := "$MAPS_API_KEY ${} ${1BAD} $${MAPS_API_KEY"
	res := Render(in, map[string]string{"MAPS_API_KEY": "x"})
	if res.Text != in || len(res.Replaced) != 0 || len(res.Unknown) != 0 {
		t.Fatalf("Render() = %+v", res)
	}
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "AndroidManifest.tmpl.xml")
	dst := filepath.Join(dir, "out", "AndroidManifest.xml")
	if err := os.WriteFile(src, []byte(`key="${MAPS_API_KEY}"`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	res, err := RenderFile(src, dst, map[string]string{"MAPS_API_KEY": "AIza"}, 0o600)
	if err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}
	if !res.Complete() {
		t.Errorf("Unknown = %v", res.Unknown)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != `key="AIza"` {
		t.Errorf("output = %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(filepath.Dir(dst))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestRenderFile_MissingTemplate(t *testing.T) {
	dir := t.TempDir()
	_, err := RenderFile(filepath.Join(dir, "nope.xml"), filepath.Join(dir, "out.xml"), nil, 0o644)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

type fakeTempFile struct {
	name     string
	writeErr error
	syncErr  error
	closeErr error
}

func (f *fakeTempFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}
func (f *fakeTempFile) Sync() error  { return f.syncErr }
func (f *fakeTempFile) Close() error { return f.closeErr }
func (f *fakeTempFile) Name() string { return f.name }

func TestWriteFile_Errors(t *testing.T) {
	origCreateTemp := createTemp
	origChmod := osChmod
	origRename := osRename
	origRemove := osRemove
	t.Cleanup(func() {
		createTemp = origCreateTemp
		osChmod = origChmod
		osRename = origRename
		osRemove = origRemove
	})

	boom := errors.New("boom")
	tests := []struct {
		name      string
		tmp       *fakeTempFile
		createErr error
		chmodErr  error
		renameErr error
	}{
		{name: "create", createErr: boom},
		{name: "write", tmp: &fakeTempFile{writeErr: boom}},
		{name: "sync", tmp: &fakeTempFile{syncErr: boom}},
		{name: "close", tmp: &fakeTempFile{closeErr: boom}},
		{name: "chmod", tmp: &fakeTempFile{}, chmodErr: boom},
		{name: "rename", tmp: &fakeTempFile{}, renameErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var removed []string
			createTemp = func(dir, pattern string) (tempFile, error) {
				if tt.createErr != nil {
					return nil, tt.createErr
				}
				tt.tmp.name = filepath.Join(dir, "tmp")
				return tt.tmp, nil
			}
			osChmod = func(string, os.FileMode) error { return tt.chmodErr }
			osRename = func(string, string) error { return tt.renameErr }
			osRemove = func(name string) error {
				removed = append(removed, name)
				return nil
			}

			err := writeFile(filepath.Join(t.TempDir(), "out.xml"), []byte("x"), 0o644)
			if !errors.Is(err, boom) {
				t.Fatalf("writeFile() error = %v, want %v", err, boom)
			}
			if tt.createErr == nil && len(removed) != 1 {
				t.Errorf("temporary file not removed: %v", removed)
			}
		})
	}
}
