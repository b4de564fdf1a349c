package format

import (
	"testing"
)

func TestFlatten(t *testing.T) {
	data := map[string]any{
		"flutter": map[string]any{
			"mapsApiKey": "AIza-TEST-123",
			"minSdk":     23,
			"ratio":      1.5,
			"release":    true,
			"unset":      nil,
		},
		"hosts": []any{"a", "b"},
		"empty": map[string]any{},
		"legacy": map[any]any{
			"key": "v",
		},
	}

	got := Flatten(data)
	want := map[string]string{
		"flutter.mapsApiKey": "AIza-TEST-123",
		"flutter.minSdk":     "23",
		"flutter.ratio":      "1.5",
		"flutter.release":    "true",
		"hosts.0":            "a",
		"hosts.1":            "b",
		"legacy.key":         "v",
	}

	if len(got) != len(want) {
		t.Fatalf("Flatten() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Flatten()[%q] = %q, want %q", k, got[k], v)
		}
	}
	if _, ok := got["flutter.unset"]; ok {
		t.Error("null leaf should not define a key")
	}
}

func TestFlatten_EmptyStringIsDefined(t *testing.T) {
	got := Flatten(map[string]any{"k": ""})
	v, ok := got["k"]
	if !ok || v != "" {
		t.Fatalf(`Flatten()["k"] = %q, %v; want "", true`, v, ok)
	}
}

func TestForPath(t *testing.T) {
	p := NewParser("test", func(b []byte) (map[string]string, error) {
		return map[string]string{"raw": string(b)}, nil
	})
	Register(p, ".Test", "tst")

	for _, path := range []string{"a.test", "dir/b.TEST", "c.tst"} {
		got, err := ForPath(path)
		if err != nil {
			t.Fatalf("ForPath(%q) error = %v", path, err)
		}
		if got.Format() != "test" {
			t.Fatalf("ForPath(%q).Format() = %q", path, got.Format())
		}
	}

	if _, err := ForPath("unknown.ext"); err == nil {
		t.Fatal("ForPath(unknown) expected error")
	}
}

func TestForName(t *testing.T) {
	p := NewParser("named", func(b []byte) (map[string]string, error) {
		return map[string]string{}, nil
	})
	Register(p, "named")

	for _, name := range []string{"named", ".named", "NAMED"} {
		got, err := ForName(name)
		if err != nil {
			t.Fatalf("ForName(%q) error = %v", name, err)
		}
		if got.Format() != "named" {
			t.Fatalf("ForName(%q).Format() = %q", name, got.Format())
		}
	}

	if _, err := ForName("nope"); err == nil {
		t.Fatal("ForName(unknown) expected error")
	}
}
