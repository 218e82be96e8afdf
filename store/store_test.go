package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"The Water Cycle", "The_Water_Cycle"},
		{"What? Really: <yes>/no", "What_Really_yes_no"},
		{"  spaced  out  ", "spaced_out"},
		{"???", "untitled"},
		{"", "untitled"},
		{"already-safe.name", "already-safe.name"},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSaveLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.json")
	in := map[string]int{"a": 1, "b": 2}
	if err := SaveJSON(path, in); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	var out map[string]int
	if err := LoadJSON(path, &out); err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if out["a"] != 1 || out["b"] != 2 {
		t.Errorf("round trip lost data: %v", out)
	}
}

func TestLoadJSONMissingFile(t *testing.T) {
	var out map[string]int
	err := LoadJSON(filepath.Join(t.TempDir(), "nope.json"), &out)
	nf, ok := err.(*NotFoundError)
	if !ok {
		t.Fatalf("got %T, want *NotFoundError", err)
	}
	if nf.Path == "" {
		t.Error("NotFoundError does not name the path")
	}
}

func TestNumberedDir(t *testing.T) {
	root := t.TempDir()
	first, err := NumberedDir(root, "My Topic")
	if err != nil {
		t.Fatalf("NumberedDir: %v", err)
	}
	if filepath.Base(first) != "01_My_Topic" {
		t.Errorf("first dir = %q, want 01_My_Topic", filepath.Base(first))
	}
	second, err := NumberedDir(root, "My Topic")
	if err != nil {
		t.Fatalf("NumberedDir second: %v", err)
	}
	if filepath.Base(second) != "02_My_Topic" {
		t.Errorf("second dir = %q, want 02_My_Topic", filepath.Base(second))
	}
	for _, dir := range []string{first, second} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("dir not created: %v", err)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := FileExists(path, "test file"); err != nil {
		t.Errorf("existing file reported missing: %v", err)
	}
	err := FileExists(filepath.Join(dir, "absent.txt"), "the missing piece")
	if err == nil {
		t.Fatal("missing file not reported")
	}
}
