package service

import "testing"

func TestKeyBuilder(t *testing.T) {
	k := KeyBuilder{}

	tests := []struct {
		got, want string
	}{
		{k.All(), "articles"},
		{k.Page(2, 15), "articles:page:2:size:15"},
		{k.ByID("42"), "article:id:42"},
		{k.BySlug("hello-world"), "article:slug:hello-world"},
		{KeyBuilder{Prefix: "blog"}.All(), "blog:articles"},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("key = %q, want %q", tc.got, tc.want)
		}
	}
}

func TestKeysDoNotCollide(t *testing.T) {
	k := KeyBuilder{}
	seen := map[string]string{}

	keys := map[string]string{
		"all":         k.All(),
		"page 1/15":   k.Page(1, 15),
		"page 11/5":   k.Page(11, 5),
		"page 1/5":    k.Page(1, 5),
		"id 42":       k.ByID("42"),
		"slug 42":     k.BySlug("42"),
		"id slug:x":   k.ByID("slug:x"),
		"slug x":      k.BySlug("x"),
		"id articles": k.ByID("articles"),
		"slug id:1":   k.BySlug("id:1"),
		"id 1":        k.ByID("1"),
	}
	for name, key := range keys {
		if other, ok := seen[key]; ok {
			t.Errorf("%s and %s share key %q", name, other, key)
		}
		seen[key] = name
	}

	if k.ByID("7") != k.ByID("7") {
		t.Error("keys must be deterministic")
	}
}
