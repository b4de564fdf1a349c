package kasane

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	_ "github.com/agriguard/kasane/format/properties"
	"github.com/agriguard/kasane/kasanetest"
	"github.com/agriguard/kasane/source"
	"github.com/agriguard/kasane/source/env"
	"github.com/agriguard/kasane/source/fs"
)

const (
	mapsKey     = "flutter.mapsApiKey"
	mapsDefault = "YOUR_API_KEY_HERE"
)

// buildSources returns the usual stack: local.properties in dir, then
// MAPS_API_KEY from vars.
func buildSources(t *testing.T, properties string, vars map[string]string) []source.Source {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "local.properties")
	if properties != "" {
		if err := os.WriteFile(path, []byte(properties), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	return []source.Source{
		fs.New(path, fs.WithName("local.properties")),
		source.Alias(env.FromMap("env", vars), map[string]string{mapsKey: "MAPS_API_KEY"}),
	}
}

func TestResolve_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		properties string
		vars       map[string]string
		want       string
	}{
		{
			name:       "file wins",
			properties: "sdk.dir=/opt/android\nflutter.mapsApiKey=AIza-TEST-123\n",
			vars:       map[string]string{"MAPS_API_KEY": "AIza-ENV-456"},
			want:       "AIza-TEST-123",
		},
		{
			name:       "env when file lacks key",
			properties: "sdk.dir=/opt/android\n",
			vars:       map[string]string{"MAPS_API_KEY": "AIza-ENV-456"},
			want:       "AIza-ENV-456",
		},
		{
			name: "env when file missing",
			vars: map[string]string{"MAPS_API_KEY": "AIza-ENV-456"},
			want: "AIza-ENV-456",
		},
		{
			name: "default when nothing defines key",
			want: mapsDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources := buildSources(t, tt.properties, tt.vars)
			got, err := Resolve(context.Background(), mapsKey, sources, mapsDefault)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_EmptyKey(t *testing.T) {
	stub := kasanetest.NewStub("stub", map[string]string{"": "x"})

	_, err := Resolve(context.Background(), "", []source.Source{stub}, "d")
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}
	if stub.Calls() != 0 {
		t.Errorf("source consulted %d times for an empty key", stub.Calls())
	}
}

func TestResolve_NoSources(t *testing.T) {
	for _, sources := range [][]source.Source{nil, {}} {
		got, err := Resolve(context.Background(), "k", sources, "fallback")
		if err != nil || got != "fallback" {
			t.Fatalf("Resolve() = %q, %v; want fallback", got, err)
		}
	}
}

func TestResolve_EmptyDefault(t *testing.T) {
	got, err := Resolve(context.Background(), "k", []source.Source{kasanetest.NewStub("a", nil)}, "")
	if err != nil || got != "" {
		t.Fatalf("Resolve() = %q, %v; want empty", got, err)
	}
}

func TestResolve_EmptyValueWins(t *testing.T) {
	first := kasanetest.NewStub("first", map[string]string{"k": ""})
	second := kasanetest.NewStub("second", map[string]string{"k": "v"})

	res, err := New().Lookup(context.Background(), "k", []source.Source{first, second}, "d")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if res.Value != "" || res.Defaulted || res.Source != "first" {
		t.Fatalf("Lookup() = %+v, want empty value from first", res)
	}
	if second.Calls() != 0 {
		t.Error("second source consulted after first defined the key")
	}
}

func TestResolve_ShortCircuit(t *testing.T) {
	a := kasanetest.NewStub("a", nil)
	b := kasanetest.NewStub("b", map[string]string{"k": "from-b"})
	c := kasanetest.NewStub("c", map[string]string{"k": "from-c"})

	res, err := New().Lookup(context.Background(), "k", []source.Source{a, b, c}, "d")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if res.Value != "from-b" || res.Index != 1 || res.SourceType != kasanetest.TypeStub {
		t.Fatalf("Lookup() = %+v", res)
	}
	if a.Calls() != 1 || b.Calls() != 1 || c.Calls() != 0 {
		t.Errorf("calls a=%d b=%d c=%d, want 1 1 0", a.Calls(), b.Calls(), c.Calls())
	}
}

func TestResolve_OrderMatters(t *testing.T) {
	a := kasanetest.NewStub("a", map[string]string{"k": "A"})
	b := kasanetest.NewStub("b", map[string]string{"k": "B"})

	ab, _ := Resolve(context.Background(), "k", []source.Source{a, b}, "")
	ba, _ := Resolve(context.Background(), "k", []source.Source{b, a}, "")
	if ab != "A" || ba != "B" {
		t.Fatalf("Resolve(a,b) = %q, Resolve(b,a) = %q", ab, ba)
	}
}

func TestResolve_FailingSourceSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(WithLogger(zap.New(core)))

	broken := kasanetest.NewStub("local.properties", map[string]string{"k": "never"}).
		FailWith(errors.New("permission denied"))
	envSrc := kasanetest.NewStub("env", map[string]string{"k": "AIza-ENV-456"})

	res, err := r.Lookup(context.Background(), "k", []source.Source{broken, envSrc}, "d")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if res.Value != "AIza-ENV-456" || res.Source != "env" {
		t.Fatalf("Lookup() = %+v", res)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Name != "local.properties" || !source.IsAccessError(res.Skipped[0].Err) {
		t.Fatalf("Skipped = %+v", res.Skipped)
	}

	entries := logs.FilterMessage("config source unavailable, skipping").All()
	if len(entries) != 1 {
		t.Fatalf("got %d skip log entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["source"]; got != "local.properties" {
		t.Errorf("logged source = %v", got)
	}
}

func TestResolve_AllSourcesFail(t *testing.T) {
	a := kasanetest.NewStub("a", nil).FailWith(errors.New("x"))
	b := kasanetest.NewStub("b", nil).FailWith(errors.New("y"))

	res, err := New().Lookup(context.Background(), "k", []source.Source{a, b}, mapsDefault)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !res.Defaulted || res.Value != mapsDefault || len(res.Skipped) != 2 {
		t.Fatalf("Lookup() = %+v", res)
	}
}

func TestResolve_UnreadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.properties")
	// A directory where the file should be cannot be read as a file.
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	sources := []source.Source{
		fs.New(path),
		env.FromMap("env", map[string]string{mapsKey: "AIza-ENV-456"}),
	}

	got, err := Resolve(context.Background(), mapsKey, sources, mapsDefault)
	if err != nil || got != "AIza-ENV-456" {
		t.Fatalf("Resolve() = %q, %v", got, err)
	}
}

func TestResolve_NilSourceIgnored(t *testing.T) {
	b := kasanetest.NewStub("b", map[string]string{"k": "v"})

	res, err := New().Lookup(context.Background(), "k", []source.Source{nil, b}, "")
	if err != nil || res.Value != "v" || res.Index != 1 {
		t.Fatalf("Lookup() = %+v, %v", res, err)
	}
}

func TestResolve_CancelledContext(t *testing.T) {
	a := kasanetest.NewStub("a", map[string]string{"k": "v"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Resolve(ctx, "k", []source.Source{a}, "d")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if a.Calls() != 0 {
		t.Error("source consulted after cancellation")
	}
}

func TestResolve_Idempotent(t *testing.T) {
	sources := buildSources(t, "flutter.mapsApiKey=AIza-TEST-123\n", nil)

	first, _ := Resolve(context.Background(), mapsKey, sources, mapsDefault)
	second, _ := Resolve(context.Background(), mapsKey, sources, mapsDefault)
	if first != second {
		t.Fatalf("Resolve() not stable: %q then %q", first, second)
	}
}

func TestResolve_Concurrent(t *testing.T) {
	sources := buildSources(t, "flutter.mapsApiKey=AIza-TEST-123\n", nil)

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Resolve(context.Background(), mapsKey, sources, mapsDefault)
			if err != nil || got != "AIza-TEST-123" {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Errorf("concurrent Resolve() = %q", got)
	}
}

func TestLookup_Sentinel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(WithSentinel(mapsDefault), WithLogger(zap.New(core)))

	res, err := r.Lookup(context.Background(), mapsKey, nil, mapsDefault)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !res.Sentinel || !res.Defaulted {
		t.Fatalf("Lookup() = %+v, want sentinel default", res)
	}
	if logs.FilterMessage("config value is the placeholder sentinel").Len() != 1 {
		t.Error("sentinel not logged")
	}

	// A source may also hand back the sentinel verbatim.
	stub := kasanetest.NewStub("env", map[string]string{mapsKey: mapsDefault})
	res, _ = r.Lookup(context.Background(), mapsKey, []source.Source{stub}, "other")
	if !res.Sentinel || res.Defaulted {
		t.Fatalf("Lookup() = %+v, want sentinel from source", res)
	}
}

func TestLookup_LogsMaskedValue(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := New(WithLogger(zap.New(core)))
	stub := kasanetest.NewStub("env", map[string]string{"k": "AIza-SECRET"})

	if _, err := r.Lookup(context.Background(), "k", []source.Source{stub}, ""); err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	for _, e := range logs.All() {
		for _, v := range e.ContextMap() {
			if s, ok := v.(string); ok && strings.Contains(s, "SECRET") {
				t.Fatalf("secret leaked into log entry %q: %v", e.Message, e.ContextMap())
			}
		}
	}
	if logs.FilterMessage("config value resolved").Len() != 1 {
		t.Error("resolution not logged at debug level")
	}
}

func TestResolution_String(t *testing.T) {
	stub := kasanetest.NewStub("local.properties", map[string]string{mapsKey: "AIza-TEST-1234"})

	res, _ := New().Lookup(context.Background(), mapsKey, []source.Source{stub}, "")
	if got, want := res.String(), "flutter.mapsApiKey=******** (from local.properties)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	res, _ = New(WithMaskFunc(MaskKeepSuffix(4))).Lookup(context.Background(), mapsKey, nil, "fallback-value")
	if got, want := res.String(), "flutter.mapsApiKey=********alue (from default)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
