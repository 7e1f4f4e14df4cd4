package groups_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go-publicist/internal/groups"
	"go-publicist/internal/model"
)

func TestGroups_LoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "groups.yaml")
	_ = os.WriteFile(f, []byte("default: [twitter, LinkedIn, twitter]\nSocial:\n  - instagram\n  - ' facebook '\n  - ''\n"), 0644)
	g, err := groups.Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	ps, ok := g.Lookup("")
	if !ok {
		t.Fatalf("default group not found")
	}
	want := []model.PlatformID{"twitter", "linkedin"}
	if !reflect.DeepEqual(ps, want) {
		t.Fatalf("default = %v, want %v", ps, want)
	}

	ps, ok = g.Lookup("social")
	if !ok || !reflect.DeepEqual(ps, []model.PlatformID{"instagram", "facebook"}) {
		t.Fatalf("social = %v ok=%v", ps, ok)
	}

	if _, ok := g.Lookup("unknown"); ok {
		t.Fatalf("unknown group must not resolve")
	}
}

func TestGroups_NilAndErrors(t *testing.T) {
	var g *groups.Groups
	if _, ok := g.Lookup("default"); ok {
		t.Fatalf("nil groups must not resolve")
	}
	if _, err := groups.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expect error for missing file")
	}
	if _, err := groups.Parse([]byte("default: {a: b}")); err == nil {
		t.Fatalf("expect error for non-list group")
	}
}
