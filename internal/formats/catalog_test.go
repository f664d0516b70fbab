package formats

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	if got := len(c.Renderable()); got != 20 {
		t.Errorf("Expected 20 renderable slots, got %d", got)
	}

	if got := c.Composites(); !cmp.Equal(got, []string{"ENTREGA.jpg"}) {
		t.Errorf("Unexpected composites: %v", got)
	}

	want := []string{"SLOT1_WEB.jpg", "SHOWROOM_MOBILE.jpg", "HOME_PRIVATE.jpg"}
	if diff := cmp.Diff(want, c.Dependencies("ENTREGA.jpg")); diff != "" {
		t.Errorf("ENTREGA dependencies mismatch (-want +got):\n%s", diff)
	}

	slots := c.Slots()
	if slots[0] != "SLOT1_WEB.jpg" || slots[len(slots)-1] != "ENTREGA.jpg" {
		t.Errorf("Catalog order not preserved: first=%s last=%s", slots[0], slots[len(slots)-1])
	}
}

func TestPairsAreSymmetric(t *testing.T) {
	c := Default()

	pairs := map[string]string{
		"SLOT1_WEB.jpg":      "SLOT1_WEB_PRE.jpg",
		"SLOT2_WEB.jpg":      "SLOT2_WEB_PRE.jpg",
		"SLOT3_WEB.jpg":      "SLOT3_WEB_PRE.jpg",
		"SLOT1_NEXT_WEB.jpg": "SLOT1_NEXT_WEB_PRE.jpg",
		"HOME_PRIVATE.jpg":   "HOME_PRIVATE_PUBLIC.jpg",
	}

	for a, b := range pairs {
		t.Run(a, func(t *testing.T) {
			if got, ok := c.Pair(a); !ok || got != b {
				t.Errorf("Pair(%s) = %q, %v; want %q", a, got, ok, b)
			}
			if got, ok := c.Pair(b); !ok || got != a {
				t.Errorf("Pair(%s) = %q, %v; want %q", b, got, ok, a)
			}
		})
	}

	if _, ok := c.Pair("SHOWROOM_MOBILE.jpg"); ok {
		t.Error("SHOWROOM_MOBILE should have no pair")
	}
}

func TestCopyRulesResolved(t *testing.T) {
	c := Default()

	src, _ := c.Lookup("SLOT1_WEB")
	dst, _ := c.Lookup("SLOT1_WEB_PRE.jpg")

	if diff := cmp.Diff(src.Rules, dst.Rules); diff != "" {
		t.Errorf("copy rules not resolved (-source +copy):\n%s", diff)
	}
	if dst.Rules["type"] != "standard" {
		t.Errorf("Expected resolved type standard, got %v", dst.Rules["type"])
	}
}

func TestDependentComposites(t *testing.T) {
	c := Default()

	tests := []struct {
		name  string
		slots []string
		want  []string
	}{
		{name: "dependency", slots: []string{"SLOT1_WEB.jpg"}, want: []string{"ENTREGA.jpg"}},
		{name: "mirror of dependency only", slots: []string{"SLOT1_WEB_PRE.jpg"}, want: nil},
		{name: "two dependencies yield one composite", slots: []string{"HOME_PRIVATE.jpg", "SHOWROOM_MOBILE.jpg"}, want: []string{"ENTREGA.jpg"}},
		{name: "unrelated", slots: []string{"BANNER_320X50.jpg"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, c.DependentComposites(tt.slots...)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: "formats: []"},
		{name: "duplicate", yaml: "formats:\n  - {name: A, width: 1, height: 1}\n  - {name: A, width: 1, height: 1}"},
		{name: "zero size", yaml: "formats:\n  - {name: A, width: 0, height: 1}"},
		{name: "unknown pair", yaml: "formats:\n  - {name: A, width: 1, height: 1, pair: B}"},
		{name: "self pair", yaml: "formats:\n  - {name: A, width: 1, height: 1, pair: A}"},
		{name: "conflicting pairs", yaml: "formats:\n  - {name: A, width: 1, height: 1, pair: B}\n  - {name: B, width: 1, height: 1, pair: C}\n  - {name: C, width: 1, height: 1}"},
		{name: "unknown dependency", yaml: "formats:\n  - {name: A, width: 1, height: 1, composite: [B]}"},
		{name: "nested composite", yaml: "formats:\n  - {name: A, width: 1, height: 1}\n  - {name: B, width: 1, height: 1, composite: [A]}\n  - {name: C, width: 1, height: 1, composite: [B]}"},
		{name: "paired composite", yaml: "formats:\n  - {name: A, width: 1, height: 1}\n  - {name: B, width: 1, height: 1, composite: [A], pair: A}"},
		{name: "copy from unknown", yaml: "formats:\n  - {name: A, width: 1, height: 1, rules: {type: copy, source: Z}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("Expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formats.yaml")
	data := `formats:
  - name: A
    width: 10
    height: 20
    pair: B
  - name: B
    width: 10
    height: 20
  - name: C
    width: 30
    height: 30
    composite: [A, B]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if diff := cmp.Diff([]string{"A.jpg", "B.jpg", "C.jpg"}, c.Slots()); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
	if !c.IsComposite("C") {
		t.Error("Expected C to be composite")
	}
	if mirror, _ := c.Pair("B.jpg"); mirror != "A.jpg" {
		t.Errorf("Expected B mirror A, got %q", mirror)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
