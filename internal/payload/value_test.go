package payload

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustJSON(t *testing.T, v *Value) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func TestPathTraversal(t *testing.T) {
	t.Parallel()

	root := Object().
		Set("originProduct", Object().
			Set("images", Array(
				Object().Set("url", String("https://img.example.com/a.jpg")),
				Object().Set("url", String("https://img.example.com/b.jpg")),
			)).
			Set("salePrice", Int(24570)))

	node, ok := root.Path("originProduct.images.0.url")
	if !ok {
		t.Fatal("expected path to resolve")
	}
	if got := node.Str(); got != "https://img.example.com/a.jpg" {
		t.Errorf("unexpected url %q", got)
	}

	price, ok := root.Path("originProduct.salePrice")
	if !ok || price.Num() != 24570 {
		t.Errorf("salePrice: ok=%v num=%v", ok, price.Num())
	}

	for _, missing := range []string{
		"originProduct.images.2.url",
		"originProduct.images.x",
		"originProduct.none",
		"originProduct.salePrice.deeper",
	} {
		if _, ok := root.Path(missing); ok {
			t.Errorf("path %q should not resolve", missing)
		}
	}
}

func TestMergeNestedObjects(t *testing.T) {
	t.Parallel()

	base := Object().
		Set("originProduct", Object().
			Set("name", String("기본 상품명")).
			Set("salePrice", Int(1000)))
	override := Object().
		Set("originProduct", Object().
			Set("salePrice", Int(2000)))

	merged := base.Merge(override)

	name, _ := merged.Path("originProduct.name")
	if name.Str() != "기본 상품명" {
		t.Errorf("name lost in merge: %q", name.Str())
	}
	price, _ := merged.Path("originProduct.salePrice")
	if price.Num() != 2000 {
		t.Errorf("salePrice not overridden: %v", price.Num())
	}
}

func TestMergeReplacesArraysWholesale(t *testing.T) {
	t.Parallel()

	base := Object().Set("images", Array(
		Object().Set("url", String("a")),
		Object().Set("url", String("b")),
	))
	override := Object().Set("images", Array(
		Object().Set("url", String("c")),
	))

	merged := base.Merge(override)

	images, _ := merged.Get("images")
	if images.Len() != 1 {
		t.Fatalf("expected 1 image after merge, got %d", images.Len())
	}
	url, _ := merged.Path("images.0.url")
	if url.Str() != "c" {
		t.Errorf("unexpected url %q", url.Str())
	}
}

func TestMergeEmptyOverrideKeepsBase(t *testing.T) {
	t.Parallel()

	base := Object().
		Set("b", String("second")).
		Set("a", Object().Set("nested", Int(1)))

	merged := base.Merge(Object())

	if diff := cmp.Diff(mustJSON(t, base), mustJSON(t, merged)); diff != "" {
		t.Errorf("merge with empty override changed payload (-base +merged):\n%s", diff)
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	base := Object().Set("inner", Object().Set("v", Int(1)))
	override := Object().Set("inner", Object().Set("v", Int(2)))
	baseBefore := mustJSON(t, base)
	overrideBefore := mustJSON(t, override)

	_ = base.Merge(override)

	if got := mustJSON(t, base); got != baseBefore {
		t.Errorf("base mutated: %s", got)
	}
	if got := mustJSON(t, override); got != overrideBefore {
		t.Errorf("override mutated: %s", got)
	}
}

func TestCloneIsolation(t *testing.T) {
	t.Parallel()

	original := Object().Set("inner", Object().Set("v", String("before")))
	clone := original.Clone()

	inner, _ := clone.Get("inner")
	inner.Set("v", String("after"))

	node, _ := original.Path("inner.v")
	if node.Str() != "before" {
		t.Errorf("clone shared state with original: %q", node.Str())
	}
}

func TestMarshalPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	v := Object().
		Set("zeta", Int(1)).
		Set("alpha", Int(2)).
		Set("mid", Array(String("x"), Bool(true), Null()))

	want := `{"zeta":1,"alpha":2,"mid":["x",true,null]}`
	if got := mustJSON(t, v); got != want {
		t.Errorf("marshal order: got %s want %s", got, want)
	}
}

func TestUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	raw := `{"a":{"b":[1,"two",false,null]},"c":3.5}`
	var v Value
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	node, ok := v.Path("a.b.1")
	if !ok || node.Str() != "two" {
		t.Errorf("a.b.1: ok=%v str=%q", ok, node.Str())
	}
	c, _ := v.Get("c")
	if c.Num() != 3.5 {
		t.Errorf("c: %v", c.Num())
	}
}

func TestFromAnySortsMapKeys(t *testing.T) {
	t.Parallel()

	v, err := FromAny(map[string]any{"b": 1, "a": 2, "c": 3})
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}

	want := `{"a":2,"b":1,"c":3}`
	if got := mustJSON(t, v); got != want {
		t.Errorf("got %s want %s", got, want)
	}
}
